package flashdisk

import (
	"github.com/timtadh/flashdisk/errors"
)

// BlockDevice is a linear array of fixed size blocks. *fdisk.Disk and
// *file.LRUCache are block devices.
type BlockDevice interface {
	BlockSize() uint32
	BlockCount() uint32
	ReadBlock(block uint32, buf []byte) error
	WriteBlock(block uint32, buf []byte) error
}

// Iterator yields one block per call. A nil next iterator ends the run;
// err is then the reason, or nil at the end of the range.
type Iterator func() (block uint32, data []byte, err error, next Iterator)

// ReadBlocks fills buf, a whole number of blocks long, starting at
// block start.
func ReadBlocks(dev BlockDevice, start uint32, buf []byte) error {
	size := int(dev.BlockSize())
	if len(buf)%size != 0 {
		return errors.Kindf(errors.ErrOutOfRange, "buffer of %d bytes is not a multiple of block size %d", len(buf), size)
	}
	for i := 0; i*size < len(buf); i++ {
		if err := dev.ReadBlock(start+uint32(i), buf[i*size:(i+1)*size]); err != nil {
			return err
		}
	}
	return nil
}

// WriteBlocks writes data, a whole number of blocks long, starting at
// block start. It stops at the first failed block.
func WriteBlocks(dev BlockDevice, start uint32, data []byte) error {
	size := int(dev.BlockSize())
	if len(data)%size != 0 {
		return errors.Kindf(errors.ErrOutOfRange, "buffer of %d bytes is not a multiple of block size %d", len(data), size)
	}
	for i := 0; i*size < len(data); i++ {
		if err := dev.WriteBlock(start+uint32(i), data[i*size:(i+1)*size]); err != nil {
			return err
		}
	}
	return nil
}

// Blocks iterates over the blocks in [from, to). Each block is read
// into a fresh buffer.
func Blocks(dev BlockDevice, from, to uint32) Iterator {
	if to > dev.BlockCount() {
		to = dev.BlockCount()
	}
	var it Iterator
	cur := from
	it = func() (uint32, []byte, error, Iterator) {
		if cur >= to {
			return 0, nil, nil, nil
		}
		block := cur
		buf := make([]byte, dev.BlockSize())
		if err := dev.ReadBlock(block, buf); err != nil {
			return block, nil, err, nil
		}
		cur++
		return block, buf, nil, it
	}
	return it
}

// Do runs do on every block an iterator yields, stopping at the first
// error from either.
func Do(run func() (Iterator, error), do func(block uint32, data []byte) error) error {
	it, err := run()
	if err != nil {
		return err
	}
	var block uint32
	var data []byte
	for block, data, err, it = it(); it != nil; block, data, err, it = it() {
		if e := do(block, data); e != nil {
			return e
		}
	}
	return err
}
