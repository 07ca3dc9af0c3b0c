package fdisk

import (
	"fmt"
	"strings"
)

import (
	"github.com/RoaringBitmap/roaring/v2"
)

import (
	"github.com/timtadh/flashdisk/consts"
	"github.com/timtadh/flashdisk/errors"
)

// Verify checks the in memory state for consistency: the page counts of
// every segment, that each segment sits on the queue its counts call
// for, and that the block map and the ACTIVE descriptors agree one to
// one. The erased page count must match the erased descriptors outside
// failed segments. Failed segments are only checked for queue
// membership, their mapped pages still count.
func (d *Disk) Verify() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var problems []string
	bad := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	fromDescs := roaring.New()
	live := roaring.New()
	duplicates := uint32(0)
	pagesBad := uint32(0)
	erased := uint32(0)
	d.forSegments(func(sc *segment) {
		active := uint32(0)
		for page := range sc.descs {
			pd := &sc.descs[page]
			if !pd.live() {
				continue
			}
			if !live.CheckedAdd(pd.block) {
				duplicates++
			}
			if d.blocks.at(pd.block, sc, uint32(page)) {
				active++
				fromDescs.Add(pd.block)
			}
		}
		pagesBad += sc.pagesBad
		if sc.failed {
			if !d.failed.present(sc) {
				bad("%v: failed but not on the failed queue", sc)
			}
			return
		}
		erased += sc.erasedPages()
		if sc.pagesActive+sc.pagesUsed+sc.pagesBad > sc.pages {
			bad("%v: a=%d u=%d b=%d over %d pages", sc, sc.pagesActive, sc.pagesUsed, sc.pagesBad, sc.pages)
		}
		if active != sc.pagesActive {
			bad("%v: %d active pages counted, %d mapped", sc, sc.pagesActive, active)
		}
		switch {
		case sc.queue == noQueue:
			bad("%v: on no queue", sc)
		case sc.pagesAvailable() > 0 && sc.queue != availableQueue:
			bad("%v: %d pages available but on queue %c", sc, sc.pagesAvailable(), sc.queue.letter())
		case sc.pagesAvailable() == 0 && sc.pagesActive > 0 && sc.queue != usedQueue:
			bad("%v: full with active pages but on queue %c", sc, sc.queue.letter())
		}
	})

	fromMap := roaring.New()
	for block := range d.blocks {
		bc := &d.blocks[block]
		if bc.seg == nil {
			continue
		}
		if bc.seg.descs[bc.page].flagsSet(consts.USED) {
			// the rewrite of this block failed, reads report ErrIO
			continue
		}
		fromMap.Add(uint32(block))
	}
	if !fromMap.Equals(fromDescs) {
		missing := roaring.AndNot(fromMap, fromDescs)
		bad("%d mapped blocks without an active page: %v", missing.GetCardinality(), missing.ToArray())
	}

	if erased != d.erasedBlocks {
		bad("%d erased pages counted, %d erased descriptors", d.erasedBlocks, erased)
	}

	// Duplicates left by an interrupted write are counted bad.
	if duplicates > pagesBad {
		bad("%d duplicate active pages but only %d bad pages", duplicates, pagesBad)
	}

	queued := d.available.len() + d.used.len() + d.erase.len() + d.failed.len()
	total := 0
	d.forSegments(func(*segment) { total++ })
	if queued != total {
		bad("%d of %d segments queued", queued, total)
	}

	if len(problems) > 0 {
		return errors.Kindf(errors.ErrCorrupt, "%d problems: %s", len(problems), strings.Join(problems, "; "))
	}
	return nil
}
