/*
Package flash describes raw erase-block structured memory: the topology
of a flash device and the small set of operations a flash disk needs to
drive it.

A device is a run of segments. A segment is the unit of erase. Inside a
segment bits can only be programmed from 1 to 0; getting a 1 back takes
an erase of the whole segment. Implementations here (Mem) and in the
fmap and file packages model exactly that.
*/
package flash

import (
	stderrors "errors"
)

var (
	ErrNotBlank = stderrors.New("flash: area is not blank")
	ErrVerify   = stderrors.New("flash: verify mismatch")
	ErrRange    = stderrors.New("flash: access outside of segment")
)

// SegmentDesc describes Count segments of Size bytes laid out
// contiguously from Offset. Segment is the index of the first one on
// the device and is informational.
type SegmentDesc struct {
	Count   uint32 `toml:"count"`
	Segment uint32 `toml:"segment"`
	Offset  uint32 `toml:"offset"`
	Size    uint32 `toml:"size"`
}

// Base is the device offset of segment i of this descriptor.
func (sd *SegmentDesc) Base(i uint32) uint64 {
	return uint64(sd.Offset) + uint64(i)*uint64(sd.Size)
}

// End is one past the last byte used by this descriptor.
func (sd *SegmentDesc) End() uint64 {
	return sd.Base(sd.Count)
}

type DeviceDesc struct {
	Segments []SegmentDesc
	Ops      Ops
}

func (dd *DeviceDesc) SegmentCount() uint32 {
	count := uint32(0)
	for i := range dd.Segments {
		count += dd.Segments[i].Count
	}
	return count
}

// Size is the number of bytes needed to back the device.
func (dd *DeviceDesc) Size() uint64 {
	size := uint64(0)
	for i := range dd.Segments {
		if end := dd.Segments[i].End(); end > size {
			size = end
		}
	}
	return size
}

// Ops are the physical operations. The segment argument is the index
// of the segment inside sd, offsets are relative to the start of that
// segment. Every call is synchronous.
type Ops interface {
	Read(sd *SegmentDesc, device, segment, offset uint32, buf []byte) error
	Write(sd *SegmentDesc, device, segment, offset uint32, buf []byte) error
	BlankCheck(sd *SegmentDesc, device, segment, offset, size uint32) error
	Erase(sd *SegmentDesc, device, segment uint32) error
	EraseDevice(dd *DeviceDesc, device uint32) error
}

// Verifier is implemented by media that can compare in place. Verify
// returns nil when the stored bytes equal buf.
type Verifier interface {
	Verify(sd *SegmentDesc, device, segment, offset uint32, buf []byte) error
}

// Program writes src over dst the way NOR flash does: bits can only be
// cleared.
func Program(dst, src []byte) {
	for i, b := range src {
		dst[i] &= b
	}
}

func IsBlank(b []byte) bool {
	for _, x := range b {
		if x != 0xff {
			return false
		}
	}
	return true
}

func Fill(b []byte) {
	for i := range b {
		b[i] = 0xff
	}
}

// Span returns the device byte range for an access, checking it stays
// inside the segment.
func Span(sd *SegmentDesc, segment, offset, size uint32) (start, end uint64, err error) {
	if segment >= sd.Count || uint64(offset)+uint64(size) > uint64(sd.Size) {
		return 0, 0, ErrRange
	}
	start = sd.Base(segment) + uint64(offset)
	return start, start + uint64(size), nil
}
