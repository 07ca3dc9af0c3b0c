package fdisk

import (
	"encoding/binary"
	"fmt"
)

import (
	"github.com/timtadh/flashdisk/consts"
)

// descSize is the packed on-media size of a page descriptor:
// crc16, flags16, block32, all little endian.
const descSize = 8

const flagsOffset = 2

// pageDesc is the in-memory copy of a page descriptor. flags are in
// positive logic.
type pageDesc struct {
	crc   uint16
	flags consts.Flag
	block uint32
}

func erasedDesc() pageDesc {
	return pageDesc{
		crc:   consts.ERASED_CRC,
		flags: decodeFlags(consts.ERASED_FLAGS),
		block: consts.ERASED_BLOCK,
	}
}

// The media can only clear bits, so a set flag is stored as a 0 bit.
func encodeFlags(f consts.Flag) uint16 {
	return ^uint16(f)
}

func decodeFlags(raw uint16) consts.Flag {
	return consts.Flag(^raw)
}

func encodeDesc(pd *pageDesc, buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], pd.crc)
	binary.LittleEndian.PutUint16(buf[2:4], encodeFlags(pd.flags))
	binary.LittleEndian.PutUint32(buf[4:8], pd.block)
}

func decodeDesc(buf []byte) pageDesc {
	return pageDesc{
		crc:   binary.LittleEndian.Uint16(buf[0:2]),
		flags: decodeFlags(binary.LittleEndian.Uint16(buf[2:4])),
		block: binary.LittleEndian.Uint32(buf[4:8]),
	}
}

func (pd *pageDesc) erased() bool {
	return pd.crc == consts.ERASED_CRC &&
		pd.flags == 0 &&
		pd.block == consts.ERASED_BLOCK
}

func (pd *pageDesc) flagsSet(f consts.Flag) bool {
	return pd.flags.Has(f)
}

func (pd *pageDesc) flagsClear(f consts.Flag) bool {
	return pd.flags&f == 0
}

func (pd *pageDesc) setFlags(f consts.Flag) {
	pd.flags |= f
}

// live is an active page that has not been superseded.
func (pd *pageDesc) live() bool {
	return pd.flagsSet(consts.ACTIVE) && pd.flagsClear(consts.USED)
}

func (pd *pageDesc) String() string {
	return fmt.Sprintf("f=%04x c=%04x b=%d", encodeFlags(pd.flags), pd.crc, pd.block)
}

// pagesInSegment is the total page count of a segment, header included.
func pagesInSegment(size, blockSize uint32) uint32 {
	return size / blockSize
}

// descPages is the number of header pages needed for the descriptors
// of every page in the segment, rounded up.
func descPages(size, blockSize uint32) uint32 {
	pages := pagesInSegment(size, blockSize)
	bytes := pages * descSize
	return ((bytes - 1) / blockSize) + 1
}
