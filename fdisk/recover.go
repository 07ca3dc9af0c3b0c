package fdisk

import (
	"github.com/timtadh/flashdisk/consts"
)

// recover rebuilds the block map and the queues from the page
// descriptors on the media. A segment whose header cannot be read is
// put on the failed queue.
func (d *Disk) recover() error {
	d.available.reset()
	d.used.reset()
	d.erase.reset()
	d.failed.reset()
	d.blocks.clear()
	d.erasedBlocks = 0
	d.starvationThreshold = 0

	d.forSegments(func(sc *segment) {
		d.recoverSegment(sc)
		d.requeue(sc)
	})
	d.infof(d.log, "recovered: %d blocks mapped, %d erased pages, %d failed segments",
		d.blocks.used(), d.erasedBlocks, d.failed.len())
	return nil
}

func (d *Disk) recoverSegment(sc *segment) {
	l := d.segLog(sc)
	d.infof(l, "recover-block-mappings: %v", sc)

	if sc.pages > d.starvationThreshold {
		d.starvationThreshold = sc.pages
	}
	sc.pagesActive = 0
	sc.pagesUsed = 0
	sc.pagesBad = 0
	sc.failed = false
	if sc.descs == nil {
		sc.descs = make([]pageDesc, sc.pages)
	}

	if err := d.readDescs(sc); err != nil {
		l.WithError(err).Errorf("recover-block-mappings: %v: read page desc failed", sc)
		// Nothing in an unreadable segment can be trusted or written.
		sc.resetDescs()
		for page := range sc.descs {
			sc.descs[page].setFlags(consts.USED)
		}
		sc.pagesUsed = sc.pages
		sc.failed = true
		return
	}

	for page := uint32(0); page < sc.pages; page++ {
		pd := &sc.descs[page]
		switch {
		case pd.erased():
			if err := d.segBlankCheck(sc, d.pageOffset(sc, page), d.blockSize); err == nil {
				d.erasedBlocks++
				continue
			}
			// A write that never got to its descriptor.
			d.warnf(d.pageLog(sc, page), "page not blank: %v-%03d", sc, page)
			pd.setFlags(consts.USED)
			if err := d.writePageDescFlags(sc, page); err != nil {
				l.WithError(err).Errorf("forcing page to used failed: %v-%03d", sc, page)
			}
			sc.pagesUsed++
		case pd.flagsSet(consts.USED):
			sc.pagesUsed++
		case pd.flagsSet(consts.ACTIVE):
			if pd.block >= d.blockCount {
				d.warnf(d.pageLog(sc, page), "invalid block number: %v-%03d: block: %d", sc, page, pd.block)
				sc.pagesBad++
			} else if d.blocks.mapped(pd.block) {
				// No sequence numbers to tell which copy is newer. The
				// first one found stays.
				bc := d.blocks[pd.block]
				d.log.WithField("block", pd.block).Errorf(
					"duplicate block: %v-%03d: duplicate: %v-%03d", bc.seg, bc.page, sc, page)
				sc.pagesBad++
			} else {
				d.blocks.set(pd.block, sc, page)
				sc.pagesActive++
			}
		default:
			sc.pagesBad++
		}
	}
}
