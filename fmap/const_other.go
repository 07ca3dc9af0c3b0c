//go:build !linux

package fmap

import "os"

var CREATEFLAG = os.O_RDWR | os.O_CREATE | os.O_TRUNC
var OPENFLAG = os.O_RDWR
