package fdisk

// blockCtl is where a logical block currently lives. A nil seg means the
// block has never been written since the last full erase.
type blockCtl struct {
	seg  *segment
	page uint32
}

type blockMap []blockCtl

func newBlockMap(count uint32) blockMap {
	return make(blockMap, count)
}

func (bm blockMap) clear() {
	for i := range bm {
		bm[i] = blockCtl{}
	}
}

func (bm blockMap) mapped(block uint32) bool {
	return bm[block].seg != nil
}

func (bm blockMap) set(block uint32, sc *segment, page uint32) {
	bm[block] = blockCtl{seg: sc, page: page}
}

// at reports whether block is mapped to exactly this page.
func (bm blockMap) at(block uint32, sc *segment, page uint32) bool {
	if block >= uint32(len(bm)) {
		return false
	}
	return bm[block].seg == sc && bm[block].page == page
}

func (bm blockMap) used() uint32 {
	count := uint32(0)
	for i := range bm {
		if bm[i].seg != nil {
			count++
		}
	}
	return count
}
