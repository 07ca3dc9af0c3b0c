package fdisk

import (
	"github.com/sirupsen/logrus"
)

import (
	"github.com/timtadh/flashdisk/errors"
	"github.com/timtadh/flashdisk/flash"
)

type Flags uint32

const (
	// BackgroundErase leaves fully used segments on the erase queue for
	// EraseUsed instead of erasing them inside a write.
	BackgroundErase Flags = 1 << iota
	// BackgroundCompact skips the compaction that normally follows a
	// block being superseded. Low water and starvation still compact.
	BackgroundCompact
	// BlankCheckBeforeWrite checks the target area is erased before
	// every page and descriptor write.
	BlankCheckBeforeWrite
)

type Config struct {
	BlockSize uint32
	Devices   []flash.DeviceDesc

	// UnavailBlocks are held back from the disk so compaction always
	// has somewhere to go. It should be at least the page count of the
	// largest segment.
	UnavailBlocks uint32
	// CompactSegs caps the segments merged in one compaction.
	CompactSegs uint32
	// AvailCompactSegs is the available queue length at or below which
	// a write compacts first.
	AvailCompactSegs uint32

	Flags     Flags
	InfoLevel uint32
	Logger    logrus.FieldLogger
}

func (c *Config) has(f Flags) bool {
	return c.Flags&f == f
}

// blocks is the number of data pages on all devices.
func (c *Config) blocks() uint32 {
	count := uint32(0)
	for d := range c.Devices {
		for s := range c.Devices[d].Segments {
			sd := &c.Devices[d].Segments[s]
			pages := pagesInSegment(sd.Size, c.BlockSize) - descPages(sd.Size, c.BlockSize)
			count += pages * sd.Count
		}
	}
	return count
}

// largestSegment is the most data pages any one segment has.
func (c *Config) largestSegment() uint32 {
	largest := uint32(0)
	for d := range c.Devices {
		for s := range c.Devices[d].Segments {
			sd := &c.Devices[d].Segments[s]
			pages := pagesInSegment(sd.Size, c.BlockSize) - descPages(sd.Size, c.BlockSize)
			if pages > largest {
				largest = pages
			}
		}
	}
	return largest
}

func (c *Config) Validate() error {
	if c.BlockSize < descSize || c.BlockSize&(c.BlockSize-1) != 0 {
		return errors.Kindf(errors.ErrConfig, "block size %d is not a power of two of at least %d", c.BlockSize, descSize)
	}
	if len(c.Devices) == 0 {
		return errors.Kindf(errors.ErrConfig, "no flash devices")
	}
	for d := range c.Devices {
		dd := &c.Devices[d]
		if dd.Ops == nil {
			return errors.Kindf(errors.ErrConfig, "device %d has no flash operations", d)
		}
		if len(dd.Segments) == 0 {
			return errors.Kindf(errors.ErrConfig, "device %d has no segments", d)
		}
		for s := range dd.Segments {
			sd := &dd.Segments[s]
			if sd.Size%c.BlockSize != 0 {
				return errors.Kindf(errors.ErrConfig, "device %d segment descriptor %d: size %d is not a multiple of the block size", d, s, sd.Size)
			}
			if sd.Size < 2*c.BlockSize || pagesInSegment(sd.Size, c.BlockSize) <= descPages(sd.Size, c.BlockSize) {
				return errors.Kindf(errors.ErrConfig, "device %d segment descriptor %d: size %d leaves no data pages", d, s, sd.Size)
			}
		}
	}
	if c.UnavailBlocks >= c.blocks() {
		return errors.Kindf(errors.ErrConfig, "unavailable blocks %d leave no usable blocks of %d", c.UnavailBlocks, c.blocks())
	}
	if c.CompactSegs == 0 {
		return errors.Kindf(errors.ErrConfig, "compact segments must be at least 1")
	}
	return nil
}
