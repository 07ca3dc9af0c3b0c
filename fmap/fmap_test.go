package fmap

import "testing"

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

import (
	"github.com/timtadh/flashdisk/errors"
	"github.com/timtadh/flashdisk/fdisk"
	"github.com/timtadh/flashdisk/flash"
)

type T testing.T

func (t *T) assert(errors ...error) {
	for _, err := range errors {
		if err != nil {
			t.Log(string(debug.Stack()))
			t.Fatal(err)
		}
	}
}

func (t *T) device() *flash.DeviceDesc {
	return &flash.DeviceDesc{
		Segments: []flash.SegmentDesc{{Count: 4, Offset: 0, Size: 1024}},
	}
}

func (t *T) image() (*Image, *flash.DeviceDesc) {
	dd := t.device()
	img, err := Create(filepath.Join((*testing.T)(t).TempDir(), "flash.img"), dd)
	t.assert(err)
	dd.Ops = img
	return img, dd
}

func (t *T) cleanup(img *Image) {
	t.assert(img.Close())
	t.assert(img.Remove())
}

func TestCreateIsErased(x *testing.T) {
	t := (*T)(x)
	img, dd := t.image()
	defer t.cleanup(img)
	if img.Size() != 4096 {
		t.Fatalf("size %d != 4096", img.Size())
	}
	sd := &dd.Segments[0]
	for s := uint32(0); s < sd.Count; s++ {
		t.assert(img.BlankCheck(sd, 0, s, 0, sd.Size))
	}
}

func TestProgramAndErase(x *testing.T) {
	t := (*T)(x)
	img, dd := t.image()
	defer t.cleanup(img)
	sd := &dd.Segments[0]
	t.assert(img.Write(sd, 0, 2, 10, []byte{0xf0, 0x0f}))
	t.assert(img.Write(sd, 0, 2, 10, []byte{0x3c, 0xff}))
	buf := make([]byte, 2)
	t.assert(img.Read(sd, 0, 2, 10, buf))
	if !bytes.Equal(buf, []byte{0x30, 0x0f}) {
		t.Errorf("read %x", buf)
	}
	if err := img.Verify(sd, 0, 2, 10, []byte{0x30, 0x0f}); err != nil {
		t.Error(err)
	}
	if err := img.Verify(sd, 0, 2, 10, []byte{0x30, 0x0e}); err != flash.ErrVerify {
		t.Errorf("expected verify mismatch got %v", err)
	}
	if err := img.BlankCheck(sd, 0, 2, 0, 16); err != flash.ErrNotBlank {
		t.Errorf("expected not blank got %v", err)
	}
	t.assert(img.BlankCheck(sd, 0, 1, 0, sd.Size))
	t.assert(img.Erase(sd, 0, 2))
	t.assert(img.BlankCheck(sd, 0, 2, 0, sd.Size))
}

func TestOutOfSegment(x *testing.T) {
	t := (*T)(x)
	img, dd := t.image()
	defer t.cleanup(img)
	sd := &dd.Segments[0]
	if err := img.Read(sd, 0, 4, 0, make([]byte, 1)); err != flash.ErrRange {
		t.Errorf("expected range error got %v", err)
	}
	if err := img.Write(sd, 0, 0, 1020, make([]byte, 8)); err != flash.ErrRange {
		t.Errorf("expected range error got %v", err)
	}
}

func TestOutstanding(x *testing.T) {
	t := (*T)(x)
	img, dd := t.image()
	sd := &dd.Segments[0]
	b, err := img.Get(sd, 0, 0, 16)
	t.assert(err)
	if err := img.Close(); !errors.Is(err, ErrOutstanding) {
		t.Errorf("expected outstanding pointer error got %v", err)
	}
	t.assert(img.Release(b))
	if err := img.Release(b); err == nil {
		t.Errorf("expected a double release to fail")
	}
	t.cleanup(img)
}

func TestReopen(x *testing.T) {
	t := (*T)(x)
	img, dd := t.image()
	sd := &dd.Segments[0]
	t.assert(img.Write(sd, 0, 3, 0, []byte("flash")))
	t.assert(img.Sync())
	t.assert(img.Close())

	img, err := Open(img.Path(), dd)
	t.assert(err)
	defer t.cleanup(img)
	buf := make([]byte, 5)
	t.assert(img.Read(sd, 0, 3, 0, buf))
	if string(buf) != "flash" {
		t.Errorf("read %q", buf)
	}
}

func TestOpenTooSmall(x *testing.T) {
	t := (*T)(x)
	path := filepath.Join(x.TempDir(), "small.img")
	t.assert(os.WriteFile(path, make([]byte, 100), 0666))
	_, err := Open(path, t.device())
	if !errors.Is(err, ErrTooSmall) || !errors.Is(err, errors.ErrConfig) {
		t.Errorf("expected too small got %v", err)
	}
}

func TestDiskOverImage(x *testing.T) {
	t := (*T)(x)
	img, dd := t.image()
	img.Synced = true
	defer t.cleanup(img)
	log, _ := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	cfg := fdisk.Config{
		BlockSize:     128,
		Devices:       []flash.DeviceDesc{*dd},
		UnavailBlocks: 7,
		CompactSegs:   2,
		Logger:        log,
	}
	d, err := fdisk.Open(cfg)
	t.assert(err)
	for b := uint32(0); b < d.BlockCount(); b++ {
		t.assert(d.WriteBlock(b, bytes.Repeat([]byte{byte(b)}, 128)))
	}
	t.assert(d.WriteBlock(0, bytes.Repeat([]byte{0xaa}, 128)))

	d, err = fdisk.Open(cfg)
	t.assert(err)
	buf := make([]byte, 128)
	for b := uint32(0); b < d.BlockCount(); b++ {
		t.assert(d.ReadBlock(b, buf))
		expect := byte(b)
		if b == 0 {
			expect = 0xaa
		}
		if !bytes.Equal(buf, bytes.Repeat([]byte{expect}, 128)) {
			t.Errorf("block %d read %x", b, buf[:4])
		}
	}
	t.assert(d.Verify())
}
