package fdisk

import (
	"bytes"
	"encoding/binary"
)

import (
	"github.com/timtadh/flashdisk/errors"
	"github.com/timtadh/flashdisk/flash"
)

func (d *Disk) ops(sc *segment) flash.Ops {
	return d.devices[sc.device].descriptor.Ops
}

// pageOffset is the segment offset of data page page.
func (d *Disk) pageOffset(sc *segment, page uint32) uint32 {
	return (page + sc.pagesDesc) * d.blockSize
}

func (d *Disk) segRead(sc *segment, offset uint32, buf []byte) error {
	d.tracef(d.segLog(sc), "seg-read: %v: o=%08x s=%d", sc, offset, len(buf))
	err := d.ops(sc).Read(sc.descriptor, sc.device, sc.segment, offset, buf)
	if err != nil {
		return errors.Wrapf(errors.ErrIO, err, "read %v offset %d", sc, offset)
	}
	return nil
}

// segWrite marks the segment failed when the media reports an error.
func (d *Disk) segWrite(sc *segment, offset uint32, buf []byte) error {
	d.tracef(d.segLog(sc), "seg-write: %v: o=%08x s=%d", sc, offset, len(buf))
	err := d.ops(sc).Write(sc.descriptor, sc.device, sc.segment, offset, buf)
	if err != nil {
		sc.failed = true
		return errors.Wrapf(errors.ErrIO, err, "write %v offset %d", sc, offset)
	}
	return nil
}

func (d *Disk) segBlankCheck(sc *segment, offset, size uint32) error {
	d.tracef(d.segLog(sc), "seg-blank: %v: o=%08x s=%d", sc, offset, size)
	err := d.ops(sc).BlankCheck(sc.descriptor, sc.device, sc.segment, offset, size)
	if err != nil {
		return errors.Wrapf(errors.ErrIO, err, "blank check %v offset %d", sc, offset)
	}
	return nil
}

// segVerify reports whether the media at offset holds exactly buf.
// Media without an in place verify is read back into the copy buffer.
func (d *Disk) segVerify(sc *segment, offset uint32, buf []byte) bool {
	d.tracef(d.segLog(sc), "seg-verify: %v: o=%08x s=%d", sc, offset, len(buf))
	if v, ok := d.ops(sc).(flash.Verifier); ok {
		return v.Verify(sc.descriptor, sc.device, sc.segment, offset, buf) == nil
	}
	tmp := d.copyBuf[:len(buf)]
	if err := d.ops(sc).Read(sc.descriptor, sc.device, sc.segment, offset, tmp); err != nil {
		return false
	}
	return bytes.Equal(tmp, buf)
}

func (d *Disk) segErase(sc *segment) error {
	d.tracef(d.segLog(sc), "seg-erase: %v", sc)
	err := d.ops(sc).Erase(sc.descriptor, sc.device, sc.segment)
	if err != nil {
		sc.failed = true
		return errors.Wrapf(errors.ErrIO, err, "erase %v", sc)
	}
	return nil
}

func (d *Disk) deviceErase(device uint32) error {
	dc := &d.devices[device]
	d.tracef(d.log.WithField("device", device), "device-erase: %02d", device)
	if err := dc.descriptor.Ops.EraseDevice(dc.descriptor, device); err != nil {
		return errors.Wrapf(errors.ErrIO, err, "erase device %d", device)
	}
	return nil
}

func (d *Disk) readPage(sc *segment, page uint32, buf []byte) error {
	return d.segRead(sc, d.pageOffset(sc, page), buf[:d.blockSize])
}

func (d *Disk) verifyPage(sc *segment, page uint32, buf []byte) bool {
	return d.segVerify(sc, d.pageOffset(sc, page), buf[:d.blockSize])
}

// writePage programs a data page. Every page written consumes one of
// the erased pages counted in erasedBlocks.
func (d *Disk) writePage(sc *segment, page uint32, buf []byte) error {
	offset := d.pageOffset(sc, page)
	if d.config.has(BlankCheckBeforeWrite) {
		if err := d.segBlankCheck(sc, offset, d.blockSize); err != nil {
			return err
		}
	}
	if err := d.segWrite(sc, offset, buf[:d.blockSize]); err != nil {
		return err
	}
	d.erasedBlocks--
	return nil
}

func (d *Disk) copyPage(src *segment, srcPage uint32, dst *segment, dstPage uint32) error {
	d.tracef(d.segLog(src), "seg-copy-page: %v-%d -> %v-%d", src, srcPage, dst, dstPage)
	buf := d.copyBuf[:d.blockSize]
	if err := d.readPage(src, srcPage, buf); err != nil {
		return err
	}
	return d.writePage(dst, dstPage, buf)
}

// readDescs loads the header of a segment into sc.descs.
func (d *Disk) readDescs(sc *segment) error {
	buf := make([]byte, sc.pages*descSize)
	if err := d.segRead(sc, 0, buf); err != nil {
		return err
	}
	for page := uint32(0); page < sc.pages; page++ {
		sc.descs[page] = decodeDesc(buf[page*descSize:])
	}
	return nil
}

func (d *Disk) writePageDesc(sc *segment, page uint32) error {
	offset := page * descSize
	var buf [descSize]byte
	encodeDesc(&sc.descs[page], buf[:])
	if d.config.has(BlankCheckBeforeWrite) {
		if err := d.segBlankCheck(sc, offset, descSize); err != nil {
			return err
		}
	}
	return d.segWrite(sc, offset, buf[:])
}

// writePageDescFlags persists only the flags of a descriptor. Flags can
// only be set on the media so a request that would need a bit cleared
// in positive logic is refused.
func (d *Disk) writePageDescFlags(sc *segment, page uint32) error {
	offset := page*descSize + flagsOffset
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], encodeFlags(sc.descs[page].flags))
	if d.config.has(BlankCheckBeforeWrite) {
		var cur [2]byte
		if err := d.segRead(sc, offset, cur[:]); err != nil {
			return err
		}
		onMedia := decodeFlags(binary.LittleEndian.Uint16(cur[:]))
		if onMedia&^sc.descs[page].flags != 0 {
			return errors.Kindf(errors.ErrIO,
				"%v-%d: flags %04x would clear %04x on the media",
				sc, page, sc.descs[page].flags, onMedia)
		}
	}
	return d.segWrite(sc, offset, buf[:])
}
