package fdisk

import (
	"fmt"
)

import (
	"github.com/timtadh/flashdisk/flash"
)

type queueID uint8

const (
	noQueue queueID = iota
	availableQueue
	usedQueue
	eraseQueue
	failedQueue
)

func (q queueID) letter() byte {
	switch q {
	case availableQueue:
		return 'A'
	case usedQueue:
		return 'U'
	case eraseQueue:
		return 'E'
	case failedQueue:
		return 'F'
	}
	return '-'
}

// segment is the control block of one erasable segment. Page numbers
// are relative to the first data page unless stated otherwise; add
// pagesDesc to get the page number inside the segment.
type segment struct {
	queue      queueID
	descriptor *flash.SegmentDesc
	device     uint32
	segment    uint32 // index inside descriptor
	index      uint32 // index on the device

	descs []pageDesc

	pages       uint32 // data pages
	pagesDesc   uint32
	pagesActive uint32
	pagesUsed   uint32
	pagesBad    uint32

	failed bool

	// erased counts erases. Nothing reads it for placement yet.
	erased uint32
}

func (sc *segment) pagesAvailable() uint32 {
	return sc.pages - (sc.pagesActive + sc.pagesUsed + sc.pagesBad)
}

// nextAvailablePage returns the first erased page or sc.pages.
func (sc *segment) nextAvailablePage() uint32 {
	for page := uint32(0); page < sc.pages; page++ {
		if sc.descs[page].erased() {
			return page
		}
	}
	return sc.pages
}

// erasedPages counts the descriptors still erased.
func (sc *segment) erasedPages() uint32 {
	count := uint32(0)
	for i := range sc.descs {
		if sc.descs[i].erased() {
			count++
		}
	}
	return count
}

func (sc *segment) resetDescs() {
	for i := range sc.descs {
		sc.descs[i] = erasedDesc()
	}
}

func (sc *segment) String() string {
	return fmt.Sprintf("%02d-%03d", sc.device, sc.index)
}

type device struct {
	segments   []segment
	descriptor *flash.DeviceDesc
}
