package file

import (
	"bytes"
	"os"
)

import (
	"github.com/timtadh/flashdisk/errors"
	"github.com/timtadh/flashdisk/flash"
)

// Image is a flash device kept in a plain file and accessed with
// positioned reads and writes. Programming reads the old bytes back and
// clears bits so the file ends up exactly as a flash part would.
type Image struct {
	path   string
	opened bool
	file   *os.File
	device *flash.DeviceDesc
}

func NewImage(path string, dd *flash.DeviceDesc) *Image {
	return &Image{
		path:   path,
		device: dd,
	}
}

// Open opens or creates the image. A new or short file is extended to
// the device size with erased bytes.
func (self *Image) Open() error {
	if err := self.open(); err != nil {
		return errors.Wrapf(errors.ErrIO, err, "open %v", self.path)
	}
	size, err := self.Size()
	if err != nil {
		return err
	}
	if need := self.device.Size(); size < need {
		if err := self.fill(size, need); err != nil {
			return err
		}
	}
	return nil
}

func (self *Image) Close() error {
	if err := self.file.Close(); err != nil {
		return errors.Wrapf(errors.ErrIO, err, "close %v", self.path)
	}
	self.file = nil
	self.opened = false
	return nil
}

func (self *Image) Remove() error {
	if self.opened {
		return errors.Errorf("Expected file to be closed")
	}
	return os.Remove(self.Path())
}

func (self *Image) Path() string {
	return self.path
}

func (self *Image) Size() (uint64, error) {
	if !self.opened {
		return 0, errors.Errorf("File is not open")
	}
	fi, err := self.file.Stat()
	if err != nil {
		return 0, errors.Wrapf(errors.ErrIO, err, "stat %v", self.path)
	}
	return uint64(fi.Size()), nil
}

func (self *Image) Sync() error {
	if err := self.file.Sync(); err != nil {
		return errors.Wrapf(errors.ErrIO, err, "sync %v", self.path)
	}
	return nil
}

// fill writes erased bytes over [from, to).
func (self *Image) fill(from, to uint64) error {
	chunk := make([]byte, 64*1024)
	flash.Fill(chunk)
	for pos := from; pos < to; pos += uint64(len(chunk)) {
		n := uint64(len(chunk))
		if to-pos < n {
			n = to - pos
		}
		if _, err := self.file.WriteAt(chunk[:n], int64(pos)); err != nil {
			return errors.Wrapf(errors.ErrIO, err, "fill %v at %d", self.path, pos)
		}
	}
	return nil
}

func (self *Image) readAt(pos uint64, buf []byte) error {
	if !self.opened {
		return errors.Errorf("File is not open")
	}
	n, err := self.file.ReadAt(buf, int64(pos))
	if err == nil && n != len(buf) {
		return errors.Errorf("could not read the full block")
	}
	return err
}

func (self *Image) Read(sd *flash.SegmentDesc, device, segment, offset uint32, buf []byte) error {
	start, _, err := flash.Span(sd, segment, offset, uint32(len(buf)))
	if err != nil {
		return err
	}
	return self.readAt(start, buf)
}

func (self *Image) Write(sd *flash.SegmentDesc, device, segment, offset uint32, buf []byte) error {
	start, _, err := flash.Span(sd, segment, offset, uint32(len(buf)))
	if err != nil {
		return err
	}
	cur := make([]byte, len(buf))
	if err := self.readAt(start, cur); err != nil {
		return err
	}
	flash.Program(cur, buf)
	n, err := self.file.WriteAt(cur, int64(start))
	if err == nil && n != len(cur) {
		return errors.Errorf("could not write the full block")
	}
	return err
}

func (self *Image) BlankCheck(sd *flash.SegmentDesc, device, segment, offset, size uint32) error {
	start, _, err := flash.Span(sd, segment, offset, size)
	if err != nil {
		return err
	}
	cur := make([]byte, size)
	if err := self.readAt(start, cur); err != nil {
		return err
	}
	if !flash.IsBlank(cur) {
		return flash.ErrNotBlank
	}
	return nil
}

func (self *Image) Verify(sd *flash.SegmentDesc, device, segment, offset uint32, buf []byte) error {
	start, _, err := flash.Span(sd, segment, offset, uint32(len(buf)))
	if err != nil {
		return err
	}
	cur := make([]byte, len(buf))
	if err := self.readAt(start, cur); err != nil {
		return err
	}
	if !bytes.Equal(cur, buf) {
		return flash.ErrVerify
	}
	return nil
}

func (self *Image) Erase(sd *flash.SegmentDesc, device, segment uint32) error {
	start, end, err := flash.Span(sd, segment, 0, sd.Size)
	if err != nil {
		return err
	}
	return self.fill(start, end)
}

func (self *Image) EraseDevice(dd *flash.DeviceDesc, device uint32) error {
	return self.fill(0, dd.Size())
}
