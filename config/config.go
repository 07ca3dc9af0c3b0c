/*
Package config reads a flash disk description from TOML and opens it.

	block_size = 512          # the default
	unavail_blocks = 32
	compact_segs = 8
	avail_compact_segs = 2
	info_level = 1
	background_erase = false
	background_compact = false
	blank_check_before_write = false
	cache_size = 65536

	[[device]]
	  image = "flash0.img"
	  backend = "mmap"
	  [[device.segment]]
	    count = 16
	    offset = 0
	    size = 8192

A device without an image is simulated in memory and is lost on Close.
The backend of an image is either mmap (fmap.Image, the default) or
file (file.Image).
*/
package config

import (
	"os"
	"path/filepath"
)

import (
	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
)

import (
	"github.com/timtadh/flashdisk/consts"
	"github.com/timtadh/flashdisk/errors"
	"github.com/timtadh/flashdisk/fdisk"
	"github.com/timtadh/flashdisk/flash"
)

const (
	DefaultCompactSegs      = 8
	DefaultAvailCompactSegs = 2
)

const (
	BackendMmap = "mmap"
	BackendFile = "file"
)

type Device struct {
	Image    string              `toml:"image"`
	Backend  string              `toml:"backend"`
	Segments []flash.SegmentDesc `toml:"segment"`
}

type File struct {
	BlockSize             uint32 `toml:"block_size"`
	UnavailBlocks         uint32 `toml:"unavail_blocks"`
	CompactSegs           uint32 `toml:"compact_segs"`
	AvailCompactSegs      uint32 `toml:"avail_compact_segs"`
	InfoLevel             uint32 `toml:"info_level"`
	BackgroundErase       bool   `toml:"background_erase"`
	BackgroundCompact     bool   `toml:"background_compact"`
	BlankCheckBeforeWrite bool   `toml:"blank_check_before_write"`
	// CacheSize is the byte size of the write back cache a tool should
	// put in front of the disk. 0 disables it.
	CacheSize uint64   `toml:"cache_size"`
	Devices   []Device `toml:"device"`
}

// Load parses the file at path. Relative image paths are taken from
// the directory holding the file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConfig, err, "read %v", path)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConfig, err, "%v", path)
	}
	dir := filepath.Dir(path)
	for i := range f.Devices {
		img := f.Devices[i].Image
		if img != "" && !filepath.IsAbs(img) {
			f.Devices[i].Image = filepath.Join(dir, img)
		}
	}
	return f, nil
}

func Parse(data []byte) (*File, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConfig, err, "parse")
	}
	f := new(File)
	if err := tree.Unmarshal(f); err != nil {
		return nil, errors.Wrapf(errors.ErrConfig, err, "decode")
	}
	if !tree.Has("block_size") {
		f.BlockSize = consts.BLOCKSIZE
	}
	if !tree.Has("compact_segs") {
		f.CompactSegs = DefaultCompactSegs
	}
	if !tree.Has("avail_compact_segs") {
		f.AvailCompactSegs = DefaultAvailCompactSegs
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks what the file itself can get wrong. The geometry is
// checked again by fdisk.Open.
func (f *File) Validate() error {
	if f.BlockSize == 0 {
		return errors.Kindf(errors.ErrConfig, "block_size is 0")
	}
	if len(f.Devices) == 0 {
		return errors.Kindf(errors.ErrConfig, "at least one [[device]] is required")
	}
	for i := range f.Devices {
		dev := &f.Devices[i]
		if len(dev.Segments) == 0 {
			return errors.Kindf(errors.ErrConfig, "device %d has no [[device.segment]]", i)
		}
		switch dev.Backend {
		case "", BackendMmap, BackendFile:
		default:
			return errors.Kindf(errors.ErrConfig, "device %d: unknown backend %q", i, dev.Backend)
		}
		if dev.Backend != "" && dev.Image == "" {
			return errors.Kindf(errors.ErrConfig, "device %d: backend %q without an image", i, dev.Backend)
		}
		for s := range dev.Segments {
			if dev.Segments[s].Count == 0 {
				return errors.Kindf(errors.ErrConfig, "device %d segment %d: count is 0", i, s)
			}
		}
	}
	return nil
}

func (f *File) Flags() fdisk.Flags {
	var flags fdisk.Flags
	if f.BackgroundErase {
		flags |= fdisk.BackgroundErase
	}
	if f.BackgroundCompact {
		flags |= fdisk.BackgroundCompact
	}
	if f.BlankCheckBeforeWrite {
		flags |= fdisk.BlankCheckBeforeWrite
	}
	return flags
}

// Config builds the fdisk configuration for already opened devices.
func (f *File) Config(devices []flash.DeviceDesc, log logrus.FieldLogger) fdisk.Config {
	return fdisk.Config{
		BlockSize:        f.BlockSize,
		Devices:          devices,
		UnavailBlocks:    f.UnavailBlocks,
		CompactSegs:      f.CompactSegs,
		AvailCompactSegs: f.AvailCompactSegs,
		Flags:            f.Flags(),
		InfoLevel:        f.InfoLevel,
		Logger:           log,
	}
}
