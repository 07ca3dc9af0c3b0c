package file

import (
	"container/list"
)

import (
	"github.com/timtadh/flashdisk"
	"github.com/timtadh/flashdisk/errors"
)

type lru struct {
	buffer  map[uint32]*list.Element
	stack   *list.List
	size    int
	pageout func(uint32, []byte) error
}

// LRUCache is a write back cache in front of a block device. Writes
// stay in memory until they are evicted or Persist is called, so a
// block rewritten many times in a row costs the device one write.
type LRUCache struct {
	dev        flashdisk.BlockDevice
	cache_size int
	lru        *lru
}

// NewLRUCache caches about size bytes worth of blocks. A size of 0
// writes through.
func NewLRUCache(dev flashdisk.BlockDevice, size uint64) *LRUCache {
	cache_size := 0
	if size > 0 {
		cache_size = 1 + int(size/uint64(dev.BlockSize()))
	}
	cf := &LRUCache{
		dev:        dev,
		cache_size: cache_size,
	}
	cf.lru = newLRU(cache_size, cf.pageout)
	return cf
}

func (self *LRUCache) Persist() error {
	return self.lru.Persist()
}

func (self *LRUCache) BlockSize() uint32 { return self.dev.BlockSize() }

func (self *LRUCache) BlockCount() uint32 { return self.dev.BlockCount() }

func (self *LRUCache) pageout(block uint32, data []byte) error {
	return self.dev.WriteBlock(block, data)
}

func (self *LRUCache) check(block uint32, buf []byte) error {
	if block >= self.dev.BlockCount() {
		return errors.Kindf(errors.ErrOutOfRange, "block %d of %d", block, self.dev.BlockCount())
	}
	if uint32(len(buf)) < self.dev.BlockSize() {
		return errors.Kindf(errors.ErrOutOfRange, "buffer of %d bytes for block size %d", len(buf), self.dev.BlockSize())
	}
	return nil
}

func (self *LRUCache) WriteBlock(block uint32, buf []byte) error {
	if err := self.check(block, buf); err != nil {
		return err
	}
	if self.cache_size == 0 {
		return self.dev.WriteBlock(block, buf)
	}
	data := make([]byte, self.dev.BlockSize())
	copy(data, buf)
	return self.lru.Update(block, data, false)
}

func (self *LRUCache) ReadBlock(block uint32, buf []byte) error {
	if err := self.check(block, buf); err != nil {
		return err
	}
	if data, has := self.lru.Read(block, self.BlockSize()); has {
		copy(buf, data)
		return nil
	}
	if err := self.dev.ReadBlock(block, buf); err != nil {
		return err
	}
	if self.cache_size == 0 {
		return nil
	}
	data := make([]byte, self.dev.BlockSize())
	copy(data, buf)
	return self.lru.Update(block, data, true)
}

// Forget drops a block from the cache without writing it back.
func (self *LRUCache) Forget(block uint32) {
	self.lru.Remove(block)
}

// -------------------------------------------------------------------------------------

type lru_item struct {
	bytes []byte
	p     uint32
	dirty bool
}

func new_lruitem(p uint32, bytes []byte) *lru_item {
	return &lru_item{
		p:     p,
		bytes: bytes,
		dirty: true,
	}
}

func newLRU(size int, pageout func(uint32, []byte) error) *lru {
	self := new(lru)
	self.buffer = make(map[uint32]*list.Element)
	self.stack = list.New()
	self.size = size - 1
	self.pageout = pageout
	return self
}

func (self *lru) Size() int { return self.size }

func (self *lru) Len() int { return self.stack.Len() }

func (self *lru) Remove(p uint32) {
	self.Update(p, nil, false)
}

// Persist writes back every dirty block, oldest first, and empties the
// cache.
func (self *lru) Persist() error {
	for self.stack.Len() > 0 {
		e := self.stack.Back()
		if e == nil {
			return errors.Errorf("Element unexpectedly nil %v", self.stack.Len())
		}
		i := e.Value.(*lru_item)
		if i.dirty {
			err := self.pageout(i.p, i.bytes)
			if err != nil {
				return err
			}
		}
		delete(self.buffer, i.p)
		self.stack.Remove(e)
	}
	return nil
}

func (self *lru) Has(p uint32) bool {
	_, has := self.buffer[p]
	return has
}

func (self *lru) Update(p uint32, block []byte, fromdisk bool) error {
	if e, has := self.buffer[p]; has {
		if block == nil {
			delete(self.buffer, p)
			self.stack.Remove(e)
		} else {
			item := e.Value.(*lru_item)
			item.bytes = block
			item.dirty = item.dirty || !fromdisk
			self.stack.MoveToFront(e)
		}
		return nil
	}
	if block == nil {
		// not cached, nothing to drop
		return nil
	}
	for self.size < self.stack.Len() && self.stack.Len() > 0 {
		e := self.stack.Back()
		i := e.Value.(*lru_item)
		if i.dirty {
			err := self.pageout(i.p, i.bytes)
			if err != nil {
				return err
			}
		}
		delete(self.buffer, i.p)
		self.stack.Remove(e)
	}
	item := new_lruitem(p, block)
	if fromdisk {
		item.dirty = false
	}
	self.buffer[p] = self.stack.PushFront(item)
	return nil
}

func (self *lru) Read(p uint32, length uint32) ([]byte, bool) {
	if e, has := self.buffer[p]; has {
		if i, ok := e.Value.(*lru_item); ok {
			if len(i.bytes) != int(length) {
				return nil, false
			}
			self.stack.MoveToFront(e)
			// hit
			return i.bytes, true
		}
	}
	// miss
	return nil, false
}
