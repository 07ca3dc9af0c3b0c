//go:build linux

package fmap

import (
	"os"
)

import (
	"golang.org/x/sys/unix"
)

var CREATEFLAG = os.O_RDWR | os.O_CREATE | os.O_TRUNC | unix.O_NOATIME
var OPENFLAG = os.O_RDWR | unix.O_NOATIME
