package fmap

import (
	stderrors "errors"
)

var (
	ErrNotOpen     = stderrors.New("fmap: image is not open")
	ErrOutstanding = stderrors.New("fmap: outstanding pointers into the map")
	ErrTooSmall    = stderrors.New("fmap: image is smaller than the device")
)
