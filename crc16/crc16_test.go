package crc16

import "testing"

import (
	"github.com/stretchr/testify/assert"
)

func TestTableMatchesPolynomial(t *testing.T) {
	for b := 0; b < 256; b++ {
		v := uint16(b)
		for i := 0; i < 8; i++ {
			if v&1 != 0 {
				v = (v >> 1) ^ Polynomial
			} else {
				v >>= 1
			}
		}
		assert.Equalf(t, v, table[b], "table[%d]", b)
	}
}

func TestCheckValue(t *testing.T) {
	assert.Equal(t, uint16(0x6f91), Checksum([]byte("123456789")))
}

func TestErasedPage(t *testing.T) {
	page := make([]byte, 16)
	for i := range page {
		page[i] = 0xff
	}
	assert.Equal(t, uint16(0xd256), Checksum(page))
}

func TestUpdateIsIncremental(t *testing.T) {
	data := []byte("flash translation layer")
	whole := Checksum(data)
	part := Update(Seed, data[:7])
	part = Update(part, data[7:])
	assert.Equal(t, whole, part)
	assert.Equal(t, uint16(Seed), Checksum(nil))
}
