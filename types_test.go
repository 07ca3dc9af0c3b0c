package flashdisk_test

import "testing"

import (
	"bytes"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

import (
	"github.com/timtadh/flashdisk"
	"github.com/timtadh/flashdisk/errors"
	"github.com/timtadh/flashdisk/fdisk"
	"github.com/timtadh/flashdisk/flash"
)

type T testing.T

const blockSize = 32

func (t *T) disk() *fdisk.Disk {
	_, devices := flash.MemDevices([]flash.SegmentDesc{
		{Count: 6, Offset: 0, Size: 4 * blockSize},
	})
	log, _ := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	d, err := fdisk.Open(fdisk.Config{
		BlockSize:     blockSize,
		Devices:       devices,
		UnavailBlocks: 3,
		CompactSegs:   2,
		Logger:        log,
	})
	require.NoError(t, err)
	return d
}

func (t *T) run(from, to byte) []byte {
	buf := make([]byte, 0, int(to-from)*blockSize)
	for b := from; b < to; b++ {
		buf = append(buf, bytes.Repeat([]byte{b}, blockSize)...)
	}
	return buf
}

func TestWriteReadBlocks(x *testing.T) {
	t := (*T)(x)
	d := t.disk()
	data := t.run(1, 5)
	require.NoError(t, flashdisk.WriteBlocks(d, 2, data))
	buf := make([]byte, len(data))
	require.NoError(t, flashdisk.ReadBlocks(d, 2, buf))
	assert.Equal(t, data, buf)

	one := make([]byte, blockSize)
	require.NoError(t, d.ReadBlock(1, one))
	assert.Equal(t, bytes.Repeat([]byte{0xff}, blockSize), one)
}

func TestBlocksNotAMultiple(x *testing.T) {
	t := (*T)(x)
	d := t.disk()
	err := flashdisk.WriteBlocks(d, 0, make([]byte, blockSize+1))
	assert.True(t, errors.Is(err, errors.ErrOutOfRange), "%v", err)
	err = flashdisk.ReadBlocks(d, 0, make([]byte, blockSize-1))
	assert.True(t, errors.Is(err, errors.ErrOutOfRange), "%v", err)
}

func TestWriteBlocksPastEnd(x *testing.T) {
	t := (*T)(x)
	d := t.disk()
	err := flashdisk.WriteBlocks(d, d.BlockCount()-1, t.run(1, 3))
	assert.True(t, errors.Is(err, errors.ErrOutOfRange), "%v", err)
	// the first block landed before the failure
	buf := make([]byte, blockSize)
	require.NoError(t, d.ReadBlock(d.BlockCount()-1, buf))
	assert.Equal(t, bytes.Repeat([]byte{1}, blockSize), buf)
}

func TestIterateBlocks(x *testing.T) {
	t := (*T)(x)
	d := t.disk()
	require.NoError(t, flashdisk.WriteBlocks(d, 0, t.run(0, 4)))
	var seen []uint32
	err := flashdisk.Do(
		func() (flashdisk.Iterator, error) {
			return flashdisk.Blocks(d, 1, 3), nil
		},
		func(block uint32, data []byte) error {
			seen = append(seen, block)
			assert.Equal(t, bytes.Repeat([]byte{byte(block)}, blockSize), data)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, seen)
}

func TestIterateClampsToDevice(x *testing.T) {
	t := (*T)(x)
	d := t.disk()
	count := 0
	err := flashdisk.Do(
		func() (flashdisk.Iterator, error) {
			return flashdisk.Blocks(d, 0, d.BlockCount()+10), nil
		},
		func(block uint32, data []byte) error {
			count++
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, int(d.BlockCount()), count)
}

func TestDoStopsOnError(x *testing.T) {
	t := (*T)(x)
	d := t.disk()
	stop := errors.Errorf("stop")
	count := 0
	err := flashdisk.Do(
		func() (flashdisk.Iterator, error) {
			return flashdisk.Blocks(d, 0, d.BlockCount()), nil
		},
		func(block uint32, data []byte) error {
			count++
			if block == 2 {
				return stop
			}
			return nil
		})
	assert.Equal(t, stop, err)
	assert.Equal(t, 3, count)
}
