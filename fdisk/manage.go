package fdisk

// requeue puts a segment on the queue its counts call for. A failed
// segment goes to the failed queue and stays there.
func (d *Disk) requeue(sc *segment) {
	d.tracef(d.segLog(sc), "queue-seg: %v: p=%d a=%d u=%d b=%d f=%v",
		sc, sc.pages, sc.pagesActive, sc.pagesUsed, sc.pagesBad, sc.failed)

	if sc.failed {
		d.markFailed(sc)
		return
	}

	d.available.remove(sc)
	d.used.remove(sc)

	if sc.pagesAvailable() == 0 {
		if sc.pagesActive > 0 {
			// Most used pages first, they give back the most when
			// compacted.
			d.used.insertBefore(sc, func(seg *segment) bool {
				return sc.pagesUsed > seg.pagesUsed
			})
		} else if d.config.has(BackgroundErase) {
			if !d.erase.present(sc) {
				d.erase.pushTail(sc)
			}
		} else {
			if err := d.eraseSegment(sc); err != nil {
				d.log.WithError(err).Errorf("queue-seg: %v: erase failed", sc)
			}
		}
		return
	}

	// Fewest available pages first so partly used segments fill before
	// an empty one is started.
	d.available.insertBefore(sc, func(seg *segment) bool {
		return sc.pagesAvailable() < seg.pagesAvailable()
	})
}

// markFailed moves a segment to the failed queue. Its erased pages
// can no longer be written so they leave the erased count, once.
func (d *Disk) markFailed(sc *segment) {
	sc.failed = true
	d.available.remove(sc)
	d.used.remove(sc)
	d.erase.remove(sc)
	if !d.failed.present(sc) {
		d.warnf(d.segLog(sc), "segment %v failed", sc)
		d.erasedBlocks -= sc.erasedPages()
		d.failed.pushTail(sc)
	}
}

// eraseSegment erases a segment that is on no queue and appends it to
// the available queue.
func (d *Disk) eraseSegment(sc *segment) error {
	if err := d.segErase(sc); err != nil {
		d.log.WithError(err).Errorf("erase-segment: %v", sc)
		d.markFailed(sc)
		return err
	}
	d.infof(d.segLog(sc), "erase-segment: %v", sc)
	d.erasedBlocks += sc.pages - sc.erasedPages()
	sc.erased++
	sc.resetDescs()
	sc.pagesActive = 0
	sc.pagesUsed = 0
	sc.pagesBad = 0
	sc.failed = false
	d.available.pushTail(sc)
	return nil
}

// eraseUsed erases everything on the erase queue. It keeps going past
// a failure and returns the first error.
func (d *Disk) eraseUsed() error {
	var first error
	for sc := d.erase.popHead(); sc != nil; sc = d.erase.popHead() {
		if err := d.eraseSegment(sc); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// isStarved is true when fewer erased pages remain than the largest
// segment holds. Each true result is counted.
func (d *Disk) isStarved() bool {
	if d.erasedBlocks < d.starvationThreshold {
		d.starvations++
		return true
	}
	return false
}
