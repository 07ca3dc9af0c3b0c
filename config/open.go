package config

import (
	"os"
)

import (
	"github.com/sirupsen/logrus"
)

import (
	"github.com/timtadh/flashdisk/errors"
	"github.com/timtadh/flashdisk/fdisk"
	"github.com/timtadh/flashdisk/file"
	"github.com/timtadh/flashdisk/flash"
	"github.com/timtadh/flashdisk/fmap"
)

type image interface {
	flash.Ops
	Sync() error
	Close() error
}

// Disk is an open flash disk together with the media behind it.
type Disk struct {
	*fdisk.Disk
	// Mem backs the devices that have no image. Those devices have a
	// zero length entry for every imaged device so indexes line up.
	Mem    *flash.Mem
	descs  []flash.DeviceDesc
	images []image
}

// Open opens (creating when missing) every device image and then the
// disk on top of them. Logging goes to log, or the standard logger when
// log is nil.
func (f *File) Open(log logrus.FieldLogger) (*Disk, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	devices, err := f.openDevices()
	if err != nil {
		return nil, err
	}
	d, err := fdisk.Open(f.Config(devices.descs, log))
	if err != nil {
		devices.close()
		return nil, err
	}
	devices.Disk = d
	return devices, nil
}

func (f *File) openDevices() (*Disk, error) {
	disk := &Disk{}
	descs := make([]flash.DeviceDesc, len(f.Devices))
	sizes := make([]uint64, len(f.Devices))
	memory := false
	for i := range f.Devices {
		descs[i].Segments = f.Devices[i].Segments
		if f.Devices[i].Image == "" {
			sizes[i] = descs[i].Size()
			memory = true
		}
	}
	if memory {
		disk.Mem = flash.NewMem(sizes...)
	}
	for i := range f.Devices {
		dev := &f.Devices[i]
		if dev.Image == "" {
			descs[i].Ops = disk.Mem
			continue
		}
		img, err := openImage(dev, &descs[i])
		if err != nil {
			disk.close()
			return nil, errors.Wrapf(errors.ErrConfig, err, "device %d", i)
		}
		disk.images = append(disk.images, img)
		descs[i].Ops = img
	}
	disk.descs = descs
	return disk, nil
}

func openImage(dev *Device, dd *flash.DeviceDesc) (image, error) {
	switch dev.Backend {
	case BackendFile:
		img := file.NewImage(dev.Image, dd)
		if err := img.Open(); err != nil {
			return nil, err
		}
		return img, nil
	default:
		if _, err := os.Stat(dev.Image); os.IsNotExist(err) {
			return fmap.Create(dev.Image, dd)
		}
		return fmap.Open(dev.Image, dd)
	}
}

// Sync flushes every image to its file.
func (d *Disk) Sync() error {
	for _, img := range d.images {
		if err := img.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// Close syncs and closes the images. The disk must not be used after.
func (d *Disk) Close() error {
	if err := d.Sync(); err != nil {
		d.close()
		return err
	}
	return d.close()
}

func (d *Disk) close() error {
	var first error
	for _, img := range d.images {
		if err := img.Close(); err != nil && first == nil {
			first = err
		}
	}
	d.images = nil
	return first
}
