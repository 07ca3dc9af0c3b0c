package fdisk

// segQueue is an ordered queue of segments. A segment is on at most one
// queue at a time; the queue records itself in segment.queue.
type segQueue struct {
	id   queueID
	segs []*segment
}

func newQueue(id queueID) segQueue {
	return segQueue{id: id}
}

func (q *segQueue) reset() {
	for _, sc := range q.segs {
		sc.queue = noQueue
	}
	q.segs = nil
}

func (q *segQueue) len() int {
	return len(q.segs)
}

func (q *segQueue) head() *segment {
	if len(q.segs) == 0 {
		return nil
	}
	return q.segs[0]
}

func (q *segQueue) pushHead(sc *segment) {
	q.segs = append(q.segs, nil)
	copy(q.segs[1:], q.segs)
	q.segs[0] = sc
	sc.queue = q.id
}

func (q *segQueue) pushTail(sc *segment) {
	q.segs = append(q.segs, sc)
	sc.queue = q.id
}

func (q *segQueue) popHead() *segment {
	if len(q.segs) == 0 {
		return nil
	}
	sc := q.segs[0]
	copy(q.segs, q.segs[1:])
	q.segs[len(q.segs)-1] = nil
	q.segs = q.segs[:len(q.segs)-1]
	sc.queue = noQueue
	return sc
}

func (q *segQueue) index(sc *segment) int {
	for i, s := range q.segs {
		if s == sc {
			return i
		}
	}
	return -1
}

func (q *segQueue) present(sc *segment) bool {
	return sc.queue == q.id && q.index(sc) >= 0
}

func (q *segQueue) remove(sc *segment) {
	i := q.index(sc)
	if i < 0 {
		return
	}
	copy(q.segs[i:], q.segs[i+1:])
	q.segs[len(q.segs)-1] = nil
	q.segs = q.segs[:len(q.segs)-1]
	sc.queue = noQueue
}

// insertBefore places sc at the position of the first segment for which
// before returns true, or at the tail.
func (q *segQueue) insertBefore(sc *segment, before func(seg *segment) bool) {
	for i, seg := range q.segs {
		if before(seg) {
			q.segs = append(q.segs, nil)
			copy(q.segs[i+1:], q.segs[i:])
			q.segs[i] = sc
			sc.queue = q.id
			return
		}
	}
	q.pushTail(sc)
}

// mostAvailable is the segment with the most available pages, the
// first one on ties. nil on an empty queue.
func (q *segQueue) mostAvailable() *segment {
	var biggest *segment
	for _, sc := range q.segs {
		if biggest == nil || sc.pagesAvailable() > biggest.pagesAvailable() {
			biggest = sc
		}
	}
	return biggest
}
