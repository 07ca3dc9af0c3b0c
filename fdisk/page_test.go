package fdisk

import "testing"

import (
	"github.com/stretchr/testify/assert"
)

import (
	"github.com/timtadh/flashdisk/consts"
)

func TestDescEncoding(x *testing.T) {
	t := (*T)(x)
	pd := pageDesc{crc: 0x1234, flags: consts.ACTIVE, block: 7}
	buf := make([]byte, descSize)
	encodeDesc(&pd, buf)
	assert.Equal(t, []byte{0x34, 0x12, 0xfe, 0xff, 0x07, 0, 0, 0}, buf)
	assert.Equal(t, pd, decodeDesc(buf))
	assert.True(t, pd.live())

	pd.setFlags(consts.USED)
	encodeDesc(&pd, buf)
	assert.Equal(t, []byte{0xfc, 0xff}, buf[flagsOffset:flagsOffset+2])
	assert.False(t, pd.live())
}

func TestErasedDesc(x *testing.T) {
	t := (*T)(x)
	pd := erasedDesc()
	assert.True(t, pd.erased())
	assert.True(t, pd.flagsClear(consts.ACTIVE|consts.USED))
	buf := make([]byte, descSize)
	encodeDesc(&pd, buf)
	for _, b := range buf {
		assert.Equal(t, consts.ERASED, b)
	}
	pd.setFlags(consts.USED)
	assert.False(t, pd.erased())
}

func TestGeometry(x *testing.T) {
	t := (*T)(x)
	assert.Equal(t, uint32(4), pagesInSegment(128, 32))
	assert.Equal(t, uint32(1), descPages(128, 32))
	assert.Equal(t, uint32(2), descPages(128, 16))
	assert.Equal(t, uint32(2), descPages(256, 32))
	assert.Equal(t, uint32(4), descPages(512, 32))
	assert.Equal(t, uint32(1), descPages(8192, 512))
}
