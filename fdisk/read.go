package fdisk

import (
	"github.com/timtadh/flashdisk/consts"
	"github.com/timtadh/flashdisk/crc16"
	"github.com/timtadh/flashdisk/errors"
)

func (d *Disk) readBlock(block uint32, buf []byte) error {
	d.tracef(d.log.WithField("block", block), "read-block: %d", block)
	bc := d.blocks[block]
	if bc.seg == nil {
		d.tracef(d.log.WithField("block", block), "read-block: no segment mapping: %d", block)
		for i := range buf[:d.blockSize] {
			buf[i] = consts.ERASED
		}
		return nil
	}
	sc := bc.seg
	pd := &sc.descs[bc.page]
	l := d.pageLog(sc, bc.page).WithField("block", block)
	d.tracef(l, "read: %d=>%v-%03d: p=%d a=%d u=%d b=%d: %v",
		block, sc, bc.page, sc.pages, sc.pagesActive, sc.pagesUsed, sc.pagesBad, pd)

	if !pd.flagsSet(consts.ACTIVE) {
		err := errors.Kindf(errors.ErrIO, "block %d: page %v-%d not active", block, sc, bc.page)
		l.Error(err)
		return err
	}
	if pd.flagsSet(consts.USED) {
		err := errors.Kindf(errors.ErrIO, "block %d: points to used page %v-%d", block, sc, bc.page)
		l.Error(err)
		return err
	}
	if err := d.readPage(sc, bc.page, buf); err != nil {
		l.WithError(err).Error("read-block: read page failed")
		return err
	}
	if cs := crc16.Checksum(buf[:d.blockSize]); cs != pd.crc {
		err := errors.Kindf(errors.ErrIO, "block %d: crc failure: buffer %04x page %04x", block, cs, pd.crc)
		l.Error(err)
		return err
	}
	return nil
}
