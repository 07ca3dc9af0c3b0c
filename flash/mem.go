package flash

import (
	"bytes"
)

type Op int

const (
	OpRead Op = iota
	OpWrite
	OpBlankCheck
	OpErase
	OpEraseDevice
	OpVerify
)

func (op Op) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpBlankCheck:
		return "blank-check"
	case OpErase:
		return "erase"
	case OpEraseDevice:
		return "erase-device"
	case OpVerify:
		return "verify"
	}
	return "unknown"
}

type Counters struct {
	Reads        int
	Writes       int
	BlankChecks  int
	Erases       int
	DeviceErases int
	Verifies     int
}

// Mem is NOR flash held in RAM, one byte slice per device. It is meant
// for tests and for simulating a disk before real media exists.
type Mem struct {
	devices  [][]byte
	Counters Counters
	// Fault is consulted before every operation. A non nil result fails
	// the operation without touching the memory.
	Fault func(op Op, device, segment, offset uint32) error
}

func NewMem(sizes ...uint64) *Mem {
	m := &Mem{devices: make([][]byte, len(sizes))}
	for i, size := range sizes {
		m.devices[i] = make([]byte, size)
		Fill(m.devices[i])
	}
	return m
}

// MemDevices builds a Mem big enough for each segment layout and
// returns the device descriptors wired to it.
func MemDevices(layouts ...[]SegmentDesc) (*Mem, []DeviceDesc) {
	devices := make([]DeviceDesc, len(layouts))
	sizes := make([]uint64, len(layouts))
	for i, segs := range layouts {
		devices[i].Segments = segs
		sizes[i] = devices[i].Size()
	}
	m := NewMem(sizes...)
	for i := range devices {
		devices[i].Ops = m
	}
	return m, devices
}

// Bytes exposes the raw memory of a device.
func (m *Mem) Bytes(device uint32) []byte {
	return m.devices[device]
}

func (m *Mem) fault(op Op, device, segment, offset uint32) error {
	if m.Fault == nil {
		return nil
	}
	return m.Fault(op, device, segment, offset)
}

func (m *Mem) span(sd *SegmentDesc, device, segment, offset, size uint32) ([]byte, error) {
	if int(device) >= len(m.devices) {
		return nil, ErrRange
	}
	start, end, err := Span(sd, segment, offset, size)
	if err != nil {
		return nil, err
	}
	if end > uint64(len(m.devices[device])) {
		return nil, ErrRange
	}
	return m.devices[device][start:end], nil
}

func (m *Mem) Read(sd *SegmentDesc, device, segment, offset uint32, buf []byte) error {
	m.Counters.Reads++
	if err := m.fault(OpRead, device, segment, offset); err != nil {
		return err
	}
	mem, err := m.span(sd, device, segment, offset, uint32(len(buf)))
	if err != nil {
		return err
	}
	copy(buf, mem)
	return nil
}

func (m *Mem) Write(sd *SegmentDesc, device, segment, offset uint32, buf []byte) error {
	m.Counters.Writes++
	if err := m.fault(OpWrite, device, segment, offset); err != nil {
		return err
	}
	mem, err := m.span(sd, device, segment, offset, uint32(len(buf)))
	if err != nil {
		return err
	}
	Program(mem, buf)
	return nil
}

func (m *Mem) BlankCheck(sd *SegmentDesc, device, segment, offset, size uint32) error {
	m.Counters.BlankChecks++
	if err := m.fault(OpBlankCheck, device, segment, offset); err != nil {
		return err
	}
	mem, err := m.span(sd, device, segment, offset, size)
	if err != nil {
		return err
	}
	if !IsBlank(mem) {
		return ErrNotBlank
	}
	return nil
}

func (m *Mem) Verify(sd *SegmentDesc, device, segment, offset uint32, buf []byte) error {
	m.Counters.Verifies++
	if err := m.fault(OpVerify, device, segment, offset); err != nil {
		return err
	}
	mem, err := m.span(sd, device, segment, offset, uint32(len(buf)))
	if err != nil {
		return err
	}
	if !bytes.Equal(mem, buf) {
		return ErrVerify
	}
	return nil
}

func (m *Mem) Erase(sd *SegmentDesc, device, segment uint32) error {
	m.Counters.Erases++
	if err := m.fault(OpErase, device, segment, 0); err != nil {
		return err
	}
	mem, err := m.span(sd, device, segment, 0, sd.Size)
	if err != nil {
		return err
	}
	Fill(mem)
	return nil
}

func (m *Mem) EraseDevice(dd *DeviceDesc, device uint32) error {
	m.Counters.DeviceErases++
	if err := m.fault(OpEraseDevice, device, 0, 0); err != nil {
		return err
	}
	if int(device) >= len(m.devices) {
		return ErrRange
	}
	Fill(m.devices[device])
	return nil
}
