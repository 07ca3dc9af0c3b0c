package fdisk

import (
	"fmt"
	"io"
)

import (
	"github.com/timtadh/flashdisk/consts"
)

type MonitorData struct {
	BlockSize     uint32
	BlockCount    uint32
	UnavailBlocks uint32
	DeviceCount   uint32
	SegmentCount  uint32
	PageCount     uint32
	BlocksUsed    uint32

	SegsAvailable uint32
	SegsUsed      uint32
	SegsErase     uint32
	SegsFailed    uint32
	SegErases     uint32

	PagesDesc   uint32
	PagesActive uint32
	PagesUsed   uint32
	PagesBad    uint32

	ErasedPages         uint32
	StarvationThreshold uint32
	Starvations         uint32
	InfoLevel           uint32
}

func (d *Disk) Monitor() MonitorData {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := MonitorData{
		BlockSize:           d.blockSize,
		BlockCount:          d.blockCount,
		UnavailBlocks:       d.unavailBlocks,
		DeviceCount:         uint32(len(d.devices)),
		BlocksUsed:          d.blocks.used(),
		SegsAvailable:       uint32(d.available.len()),
		SegsUsed:            uint32(d.used.len()),
		SegsErase:           uint32(d.erase.len()),
		SegsFailed:          uint32(d.failed.len()),
		ErasedPages:         d.erasedBlocks,
		StarvationThreshold: d.starvationThreshold,
		Starvations:         d.starvations,
		InfoLevel:           d.infoLevel,
	}
	d.forSegments(func(sc *segment) {
		m.SegmentCount++
		m.PageCount += sc.pages
		m.PagesDesc += sc.pagesDesc
		m.PagesActive += sc.pagesActive
		m.PagesUsed += sc.pagesUsed
		m.PagesBad += sc.pagesBad
		m.SegErases += sc.erased
	})
	return m
}

// SegmentStatus is one segment as counted in memory and as its page
// descriptors read.
type SegmentStatus struct {
	Device  uint32
	Segment uint32
	Queue   byte // A, U, E, F or - when on no queue
	Pages   uint32

	PagesActive uint32
	PagesUsed   uint32
	PagesBad    uint32
	Erases      uint32

	DescActive uint32
	DescUsed   uint32
	DescErased uint32
	// Mapped is the number of blocks the block map points into this
	// segment.
	Mapped uint32
}

func (s *SegmentStatus) Available() uint32 {
	return s.Pages - (s.PagesActive + s.PagesUsed + s.PagesBad)
}

type Status struct {
	MonitorData
	Segments []SegmentStatus
	// Used lists the used queue in order as device/segment pairs.
	Used [][2]uint32
}

func (d *Disk) Status() *Status {
	m := d.Monitor()
	d.mu.Lock()
	defer d.mu.Unlock()
	mapped := make(map[*segment]uint32)
	for i := range d.blocks {
		if sc := d.blocks[i].seg; sc != nil {
			mapped[sc]++
		}
	}
	st := &Status{MonitorData: m}
	d.forSegments(func(sc *segment) {
		ss := SegmentStatus{
			Device:      sc.device,
			Segment:     sc.index,
			Queue:       sc.queue.letter(),
			Pages:       sc.pages,
			PagesActive: sc.pagesActive,
			PagesUsed:   sc.pagesUsed,
			PagesBad:    sc.pagesBad,
			Erases:      sc.erased,
			Mapped:      mapped[sc],
		}
		for page := range sc.descs {
			pd := &sc.descs[page]
			switch {
			case pd.erased():
				ss.DescErased++
			case pd.live():
				ss.DescActive++
			case pd.flagsSet(consts.USED):
				ss.DescUsed++
			}
		}
		st.Segments = append(st.Segments, ss)
	})
	for _, sc := range d.used.segs {
		st.Used = append(st.Used, [2]uint32{sc.device, sc.index})
	}
	return st
}

// PrintStatus writes a human readable dump of the disk.
func (d *Disk) PrintStatus(w io.Writer) error {
	st := d.Status()
	queued := st.SegsAvailable + st.SegsUsed + st.SegsErase + st.SegsFailed
	ok := "ok"
	if queued != st.SegmentCount {
		ok = "MISSING"
	}
	lines := []string{
		"Flash Disk Driver Status",
		fmt.Sprintf("Block count\t%d", st.BlockCount),
		fmt.Sprintf("Unavail blocks\t%d", st.UnavailBlocks),
		fmt.Sprintf("Starvation threshold\t%d", st.StarvationThreshold),
		fmt.Sprintf("Starvations\t%d", st.Starvations),
		fmt.Sprintf("Available queue\t%d", st.SegsAvailable),
		fmt.Sprintf("Used queue\t%d", st.SegsUsed),
		fmt.Sprintf("Erase queue\t%d", st.SegsErase),
		fmt.Sprintf("Failed queue\t%d", st.SegsFailed),
		fmt.Sprintf("Queue total\t%d of %d, %s", queued, st.SegmentCount, ok),
		fmt.Sprintf("Device count\t%d", st.DeviceCount),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	device := ^uint32(0)
	for i := range st.Segments {
		ss := &st.Segments[i]
		if ss.Device != device {
			device = ss.Device
			if _, err := fmt.Fprintf(w, " Device\t\t%d\n", device); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "  %3d %c p:%3d a:%3d/%3d u:%3d/%3d e:%3d/%3d br:%d\n",
			ss.Segment, ss.Queue, ss.Pages,
			ss.PagesActive, ss.DescActive,
			ss.PagesUsed, ss.DescUsed,
			ss.DescErased, ss.Available(),
			ss.Mapped)
		if err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "Used List:"); err != nil {
		return err
	}
	for i, u := range st.Used {
		if _, err := fmt.Fprintf(w, "  %3d %02d:%03d\n", i, u[0], u[1]); err != nil {
			return err
		}
	}
	return nil
}
