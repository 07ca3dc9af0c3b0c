//go:build linux

package file

import (
	"os"
)

import (
	"golang.org/x/sys/unix"
)

/*
O_DIRECT needs aligned buffers and descriptor writes are only a few
bytes long so it is left off. O_SYNC REALLY lowers performance, call
Sync instead.
*/
var OPENFLAG = os.O_RDWR | os.O_CREATE | unix.O_NOATIME

func (self *Image) open() error {
	if f, err := os.OpenFile(self.path, OPENFLAG, 0666); err != nil {
		return err
	} else {
		self.file = f
		self.opened = true
	}
	return nil
}
