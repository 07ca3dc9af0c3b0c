package fdisk

import (
	"github.com/timtadh/flashdisk/consts"
	"github.com/timtadh/flashdisk/errors"
)

func (d *Disk) compactLogged() {
	if err := d.compact(); err != nil {
		d.log.WithError(err).Error("compaction failed")
	}
}

// compact first resolves starvation by recycling one segment, then
// merges used segments into the segment with the most room for as long
// as each pass frees at least one segment and the pass budget allows.
func (d *Disk) compact() error {
	if d.isStarved() {
		d.infof(d.log, "compact: resolve starvation")
		ssc := d.used.popHead()
		if ssc == nil {
			ssc = d.available.popHead()
		}
		if ssc == nil {
			return errors.Kindf(errors.ErrIO, "compact: nothing to recycle")
		}
		dsc := d.available.mostAvailable()
		if dsc == nil {
			d.abandon(ssc, nil)
			return errors.Kindf(errors.ErrIO, "compact: starvation, no segment to recycle into")
		}
		pages := ssc.pagesActive
		if _, err := d.recycle(ssc, dsc, &pages); err != nil {
			return err
		}
	}

	compacted := uint32(0)
	for d.used.len() > 0 {
		dsc := d.available.mostAvailable()
		if dsc == nil {
			return errors.Kindf(errors.ErrIO, "compact: no available segments to compact to")
		}
		dstPages := dsc.pagesAvailable()
		segments := uint32(0)
		pages := uint32(0)
		for _, ssc := range d.used.segs {
			if pages+ssc.pagesActive >= dstPages || compacted+segments >= d.config.CompactSegs {
				break
			}
			pages += ssc.pagesActive
			segments++
		}
		// Moving one segment into another frees nothing.
		if pages == 0 || compacted+segments == 1 {
			d.tracef(d.log, "compact: nothing to compact")
			break
		}
		d.tracef(d.segLog(dsc), "compact: %v: p=%d segs=%d", dsc, pages, segments)

		for i := uint32(0); i < segments && pages > 0; i++ {
			ssc := d.used.popHead()
			if ssc == nil {
				break
			}
			var err error
			dsc, err = d.recycle(ssc, dsc, &pages)
			if err != nil {
				return err
			}
		}
		compacted += segments
	}
	return nil
}

// recycle moves the live pages of ssc into dsc, moving on to the next
// segment with the most room when dsc fills, then erases ssc. It returns
// the destination in use at the end, nil if none is left.
//
// A page is only moved when the block map points at it. A page left
// ACTIVE by an interrupted write, and counted bad at recovery, is
// dropped with the segment.
func (d *Disk) recycle(ssc, dsc *segment, pages *uint32) (*segment, error) {
	var moved []uint32
	for spage := uint32(0); spage < ssc.pages; spage++ {
		spd := &ssc.descs[spage]
		if !spd.live() || !d.blocks.at(spd.block, ssc, spage) {
			continue
		}
		if dsc == nil {
			d.abandon(ssc, moved)
			return nil, errors.Kindf(errors.ErrIO, "recycle: %v: no available destination segment", ssc)
		}
		dpage := dsc.nextAvailablePage()
		if dpage >= dsc.pages {
			err := errors.Kindf(errors.ErrCorrupt, "recycle: %v: no page desc available: %d", dsc, dsc.pagesAvailable())
			d.log.Error(err)
			dsc.failed = true
			d.requeue(dsc)
			d.abandon(ssc, moved)
			return nil, err
		}
		d.infof(d.pageLog(ssc, spage), "recycle: %v-%03d=>%v-%03d", ssc, spage, dsc, dpage)

		if err := d.copyPage(ssc, spage, dsc, dpage); err != nil {
			d.log.WithError(err).Errorf("recycle: %v-%03d=>%v-%03d: copy page failed", ssc, spage, dsc, dpage)
			if dsc.failed {
				d.consume(dsc, dpage)
			}
			d.requeue(dsc)
			d.abandon(ssc, moved)
			return nil, err
		}
		dsc.descs[dpage] = *spd
		if err := d.writePageDesc(dsc, dpage); err != nil {
			d.log.WithError(err).Errorf("recycle: %v-%03d=>%v-%03d: copy pd failed", ssc, spage, dsc, dpage)
			d.consume(dsc, dpage)
			d.requeue(dsc)
			d.abandon(ssc, moved)
			return nil, err
		}
		dsc.pagesActive++

		// The source is erased below so the flag stays in memory unless
		// the recycle is abandoned.
		spd.setFlags(consts.USED)
		ssc.pagesActive--
		ssc.pagesUsed++
		moved = append(moved, spage)

		d.blocks.set(spd.block, dsc, dpage)
		d.requeue(dsc)
		if dsc.failed || dsc.pagesAvailable() == 0 {
			dsc = d.available.mostAvailable()
		}
		if *pages > 0 {
			*pages--
		}
	}

	if ssc.pagesActive != 0 {
		err := errors.Kindf(errors.ErrCorrupt, "recycle: %v: %d active pages not mapped", ssc, ssc.pagesActive)
		d.log.Error(err)
		d.abandon(ssc, moved)
		return dsc, err
	}

	return dsc, d.eraseSegment(ssc)
}

// consume accounts for a page whose write failed. Recovery will read it
// as USED.
func (d *Disk) consume(sc *segment, page uint32) {
	if sc.descs[page].erased() {
		d.erasedBlocks--
	}
	sc.descs[page] = erasedDesc()
	sc.descs[page].setFlags(consts.USED)
	sc.pagesUsed++
}

// abandon returns a source segment whose recycle stopped part way. The
// pages already moved are flagged USED on the media so they cannot come
// back after a restart.
func (d *Disk) abandon(ssc *segment, moved []uint32) {
	for _, page := range moved {
		if err := d.writePageDescFlags(ssc, page); err != nil {
			d.log.WithError(err).Errorf("recycle: %v-%03d: flag used failed", ssc, page)
			break
		}
	}
	switch {
	case ssc.failed:
		d.markFailed(ssc)
	case ssc.pagesAvailable() == 0 && ssc.pagesActive > 0:
		d.used.pushHead(ssc)
	default:
		d.requeue(ssc)
	}
}
