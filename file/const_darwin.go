//go:build darwin

package file

import (
	"os"
)

import (
	"golang.org/x/sys/unix"
)

var OPENFLAG = os.O_RDWR | os.O_CREATE

func (self *Image) open() error {
	if f, err := os.OpenFile(self.path, OPENFLAG, 0666); err != nil {
		return err
	} else {
		self.file = f
		self.opened = true
		// keep the page cache out of the way like O_DIRECT would
		if _, err := unix.FcntlInt(self.file.Fd(), unix.F_NOCACHE, 1); err != nil {
			self.Close()
			return err
		}
	}
	return nil
}
