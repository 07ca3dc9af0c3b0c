/*
Package fdisk is a flash translation layer. It presents a run of erase
block structured flash devices as a disk of fixed size logical blocks.

Every segment of flash starts with a header holding one descriptor per
data page: a CRC16 of the page, two flags (ACTIVE, USED) and the logical
block number. There is no journal and no superblock. Open scans every
header to rebuild the block map and the segment queues.

Rewriting a block never touches the old page beyond setting its USED
flag. The new data goes to the next free page of the fullest segment
that still has room. Compaction moves the live pages of mostly stale
segments together so whole segments can be erased.
*/
package fdisk

import (
	"sync"
)

import (
	"github.com/sirupsen/logrus"
)

import (
	"github.com/timtadh/flashdisk/errors"
	"github.com/timtadh/flashdisk/flash"
)

type Disk struct {
	mu     sync.Mutex
	config Config
	log    logrus.FieldLogger

	blockSize     uint32
	blockCount    uint32
	unavailBlocks uint32
	infoLevel     uint32

	devices []device

	available segQueue
	used      segQueue
	erase     segQueue
	failed    segQueue

	blocks blockMap

	erasedBlocks        uint32
	starvationThreshold uint32
	starvations         uint32

	copyBuf []byte
}

// Open builds a disk over the configured devices and recovers the block
// mappings from what is on them. A compaction follows recovery; if it
// fails the disk is still returned.
func Open(cfg Config) (*Disk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	d := &Disk{
		config:        cfg,
		log:           cfg.Logger,
		blockSize:     cfg.BlockSize,
		blockCount:    cfg.blocks(),
		unavailBlocks: cfg.UnavailBlocks,
		infoLevel:     cfg.InfoLevel,
		available:     newQueue(availableQueue),
		used:          newQueue(usedQueue),
		erase:         newQueue(eraseQueue),
		failed:        newQueue(failedQueue),
		copyBuf:       make([]byte, cfg.BlockSize),
	}
	if largest := cfg.largestSegment(); cfg.UnavailBlocks < largest {
		d.warnf(d.log, "unavailable blocks %d less than the largest segment %d, compaction may starve", cfg.UnavailBlocks, largest)
	}
	d.blocks = newBlockMap(d.blockCount)
	d.devices = make([]device, len(cfg.Devices))
	for i := range cfg.Devices {
		d.devices[i] = d.newDevice(uint32(i), &d.config.Devices[i])
	}
	if err := d.recover(); err != nil {
		return nil, err
	}
	if err := d.compact(); err != nil {
		d.log.WithError(err).Error("compaction after recovery failed")
	}
	d.infof(d.log, "open: blocks %d, unavailable %d, block size %d", d.blockCount, d.unavailBlocks, d.blockSize)
	return d, nil
}

func (d *Disk) newDevice(dev uint32, dd *flash.DeviceDesc) device {
	dc := device{
		descriptor: dd,
		segments:   make([]segment, 0, dd.SegmentCount()),
	}
	for s := range dd.Segments {
		sd := &dd.Segments[s]
		pagesDesc := descPages(sd.Size, d.blockSize)
		pages := pagesInSegment(sd.Size, d.blockSize) - pagesDesc
		for i := uint32(0); i < sd.Count; i++ {
			dc.segments = append(dc.segments, segment{
				descriptor: sd,
				device:     dev,
				segment:    i,
				index:      uint32(len(dc.segments)),
				pages:      pages,
				pagesDesc:  pagesDesc,
			})
		}
	}
	return dc
}

// forSegments calls f on every segment in device then segment order.
func (d *Disk) forSegments(f func(sc *segment)) {
	for i := range d.devices {
		for j := range d.devices[i].segments {
			f(&d.devices[i].segments[j])
		}
	}
}

func (d *Disk) BlockSize() uint32 {
	return d.blockSize
}

// BlockCount is the number of blocks callers may use. The unavailable
// blocks are not included.
func (d *Disk) BlockCount() uint32 {
	return d.blockCount - d.unavailBlocks
}

func (d *Disk) checkBlock(block uint32, buf []byte) error {
	if block >= d.BlockCount() {
		return errors.Kindf(errors.ErrOutOfRange, "block %d of %d", block, d.BlockCount())
	}
	if uint32(len(buf)) < d.blockSize {
		return errors.Kindf(errors.ErrOutOfRange, "buffer of %d bytes for block size %d", len(buf), d.blockSize)
	}
	return nil
}

// ReadBlock fills buf with the block. A block never written reads as
// erased flash, all 0xff.
func (d *Disk) ReadBlock(block uint32, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkBlock(block, buf); err != nil {
		d.log.WithField("block", block).Error(err)
		return err
	}
	return d.readBlock(block, buf)
}

func (d *Disk) WriteBlock(block uint32, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkBlock(block, buf); err != nil {
		d.log.WithField("block", block).Error(err)
		return err
	}
	return d.writeBlock(block, buf)
}

// EraseDisk erases every device and starts over with an empty disk.
func (d *Disk) EraseDisk() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.infof(d.log, "erase-disk")
	if err := d.eraseFlash(); err != nil {
		// the devices erased so far must not keep their old mappings
		d.recover()
		return err
	}
	return d.recover()
}

func (d *Disk) eraseFlash() error {
	for dev := range d.devices {
		d.infof(d.log, "erase-flash: %02d", dev)
		if err := d.deviceErase(uint32(dev)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Disk) Compact() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.compact()
}

// EraseUsed erases the segments left on the erase queue when
// BackgroundErase is set.
func (d *Disk) EraseUsed() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.eraseUsed()
}

func (d *Disk) SetInfoLevel(level uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.infoLevel = level
}

func (d *Disk) InfoLevel() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.infoLevel
}
