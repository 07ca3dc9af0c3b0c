package fmap

import (
	"bytes"
	"os"
)

import (
	"golang.org/x/sys/unix"
)

import (
	"github.com/timtadh/flashdisk/errors"
	"github.com/timtadh/flashdisk/flash"
)

// Image is one flash device mapped from a file. It implements
// flash.Ops and flash.Verifier; the device argument of those calls is
// ignored since an image holds a single device.
type Image struct {
	path        string
	opened      bool
	size        uint64
	file        *os.File
	mmap        []byte
	outstanding int
	// Synced writes call msync after every program and erase.
	Synced bool
}

// Create makes a new, fully erased image big enough for dd.
func Create(path string, dd *flash.DeviceDesc) (*Image, error) {
	f, err := doOpen(path, CREATEFLAG)
	if err != nil {
		return nil, err
	}
	size := dd.Size()
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, errors.Wrapf(errors.ErrIO, err, "truncate %v", path)
	}
	img, err := mapFile(path, f, size)
	if err != nil {
		return nil, err
	}
	flash.Fill(img.mmap)
	if err := img.Sync(); err != nil {
		img.Close()
		return nil, err
	}
	return img, nil
}

// Open maps an existing image. It must be at least as big as dd.
func Open(path string, dd *flash.DeviceDesc) (*Image, error) {
	f, err := doOpen(path, OPENFLAG)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(errors.ErrIO, err, "stat %v", path)
	}
	size := uint64(fi.Size())
	if size < dd.Size() {
		f.Close()
		return nil, errors.Wrapf(errors.ErrConfig, ErrTooSmall, "%v is %d bytes, device needs %d", path, size, dd.Size())
	}
	return mapFile(path, f, size)
}

func doOpen(path string, flag int) (*os.File, error) {
	f, err := os.OpenFile(path, flag, 0666)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrIO, err, "open %v", path)
	}
	return f, nil
}

func mapFile(path string, f *os.File, size uint64) (*Image, error) {
	mmap, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(errors.ErrIO, err, "mmap %v", path)
	}
	return &Image{
		path:   path,
		opened: true,
		size:   size,
		file:   f,
		mmap:   mmap,
	}, nil
}

func (self *Image) Path() string {
	return self.path
}

func (self *Image) Size() uint64 {
	return self.size
}

func (self *Image) Close() error {
	if !self.opened {
		return ErrNotOpen
	}
	if self.outstanding > 0 {
		return errors.Wrapf(errors.ErrIO, ErrOutstanding, "close %v", self.path)
	}
	if err := unix.Munmap(self.mmap); err != nil {
		return errors.Wrapf(errors.ErrIO, err, "munmap %v", self.path)
	}
	self.mmap = nil
	if err := self.file.Close(); err != nil {
		return errors.Wrapf(errors.ErrIO, err, "close %v", self.path)
	}
	self.file = nil
	self.opened = false
	return nil
}

func (self *Image) Remove() error {
	if self.opened {
		return errors.Errorf("Expected %v to be closed", self.path)
	}
	return os.Remove(self.path)
}

func (self *Image) Sync() error {
	if !self.opened {
		return ErrNotOpen
	}
	if err := unix.Msync(self.mmap, unix.MS_SYNC); err != nil {
		return errors.Wrapf(errors.ErrIO, err, "msync %v", self.path)
	}
	return nil
}

// Get returns the mapped bytes of an access. Every Get must be matched
// by a Release.
func (self *Image) Get(sd *flash.SegmentDesc, segment, offset, size uint32) ([]byte, error) {
	if !self.opened {
		return nil, ErrNotOpen
	}
	start, end, err := flash.Span(sd, segment, offset, size)
	if err != nil {
		return nil, err
	}
	if end > self.size {
		return nil, errors.Wrapf(errors.ErrIO, flash.ErrRange, "%v: %d past the end %d", self.path, end, self.size)
	}
	self.outstanding++
	return self.mmap[start:end:end], nil
}

func (self *Image) Release(b []byte) error {
	if self.outstanding <= 0 {
		return errors.Errorf("Tried to release with no outstanding pointers (double free?)")
	}
	self.outstanding--
	return nil
}

func (self *Image) Do(sd *flash.SegmentDesc, segment, offset, size uint32, do func([]byte) error) error {
	b, err := self.Get(sd, segment, offset, size)
	if err != nil {
		return err
	}
	defer self.Release(b)
	return do(b)
}

func (self *Image) sync() error {
	if self.Synced {
		return self.Sync()
	}
	return nil
}

func (self *Image) Read(sd *flash.SegmentDesc, device, segment, offset uint32, buf []byte) error {
	return self.Do(sd, segment, offset, uint32(len(buf)), func(b []byte) error {
		copy(buf, b)
		return nil
	})
}

func (self *Image) Write(sd *flash.SegmentDesc, device, segment, offset uint32, buf []byte) error {
	err := self.Do(sd, segment, offset, uint32(len(buf)), func(b []byte) error {
		flash.Program(b, buf)
		return nil
	})
	if err != nil {
		return err
	}
	return self.sync()
}

func (self *Image) BlankCheck(sd *flash.SegmentDesc, device, segment, offset, size uint32) error {
	return self.Do(sd, segment, offset, size, func(b []byte) error {
		if !flash.IsBlank(b) {
			return flash.ErrNotBlank
		}
		return nil
	})
}

func (self *Image) Verify(sd *flash.SegmentDesc, device, segment, offset uint32, buf []byte) error {
	return self.Do(sd, segment, offset, uint32(len(buf)), func(b []byte) error {
		if !bytes.Equal(b, buf) {
			return flash.ErrVerify
		}
		return nil
	})
}

func (self *Image) Erase(sd *flash.SegmentDesc, device, segment uint32) error {
	err := self.Do(sd, segment, 0, sd.Size, func(b []byte) error {
		flash.Fill(b)
		return nil
	})
	if err != nil {
		return err
	}
	return self.sync()
}

func (self *Image) EraseDevice(dd *flash.DeviceDesc, device uint32) error {
	if !self.opened {
		return ErrNotOpen
	}
	flash.Fill(self.mmap)
	return self.sync()
}
