package fdisk

import (
	"github.com/timtadh/flashdisk/consts"
	"github.com/timtadh/flashdisk/crc16"
	"github.com/timtadh/flashdisk/errors"
)

// writeBlock places data for a block in the next free page. An existing
// page for the block is flagged USED first, unless it already holds the
// same data in which case nothing is written at all.
//
// Compactions run from here only log their errors. The write itself may
// still find room.
func (d *Disk) writeBlock(block uint32, buf []byte) error {
	data := buf[:d.blockSize]
	l := d.log.WithField("block", block)
	d.tracef(l, "write-block: %d", block)

	// A mapping to a page already flagged USED is left by a failed
	// rewrite and only needs replacing.
	if bc := d.blocks[block]; bc.seg != nil && bc.seg.descs[bc.page].live() {
		sc := bc.seg
		if d.verifyPage(sc, bc.page, data) {
			d.tracef(l, "write-block: %d=>%v-%03d: page verified", block, sc, bc.page)
			return nil
		}

		d.tracef(l, "write: %v-%03d: flag used", sc, bc.page)
		sc.descs[bc.page].setFlags(consts.USED)
		if err := d.writePageDescFlags(sc, bc.page); err != nil {
			d.warnf(l.WithError(err), "write: %v-%03d: write used page desc failed", sc, bc.page)
		}
		sc.pagesActive--
		sc.pagesUsed++
		d.requeue(sc)

		if !d.config.has(BackgroundCompact) {
			d.compactLogged()
		}
	}

	if uint32(d.available.len()) <= d.config.AvailCompactSegs {
		d.compactLogged()
	}

	sc := d.available.popHead()
	if sc == nil {
		if d.config.has(BackgroundCompact) {
			d.compactLogged()
		}
		sc = d.available.popHead()
		if sc == nil {
			err := errors.Kindf(errors.ErrNoSpace, "write-block: %d: no available pages", block)
			l.Error(err)
			return err
		}
	}

	page := sc.nextAvailablePage()
	if page >= sc.pages {
		err := errors.Kindf(errors.ErrCorrupt, "write-block: no erased page descs in segment %v", sc)
		l.Error(err)
		sc.failed = true
		d.requeue(sc)
		return err
	}

	pd := &sc.descs[page]
	pd.crc = crc16.Checksum(data)
	pd.block = block
	pd.setFlags(consts.ACTIVE)
	d.tracef(d.pageLog(sc, page).WithField("block", block),
		"write: %d=>%v-%03d: p=%d a=%d u=%d b=%d: %v",
		block, sc, page, sc.pages, sc.pagesActive, sc.pagesUsed, sc.pagesBad, pd)

	err := d.writePage(sc, page, data)
	programmed := err == nil
	if err == nil {
		err = d.writePageDesc(sc, page)
	}
	if err != nil {
		d.log.WithError(err).Errorf("write-block: %d=>%v-%03d: write failed", block, sc, page)
		if !programmed {
			d.erasedBlocks--
		}
		// Recovery would force this page USED, so count it that way.
		pd.setFlags(consts.USED)
		sc.pagesUsed++
	} else {
		sc.pagesActive++
		d.blocks.set(block, sc, page)
	}
	d.requeue(sc)

	if d.isStarved() {
		d.compactLogged()
	}
	return err
}
