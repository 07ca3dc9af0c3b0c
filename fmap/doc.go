/*
File memory MAP

The fmap package backs a flash device with a memory mapped file. The
file holds the raw bytes of the device: erased areas are 0xff and
writes can only clear bits, the same as NOR flash, so an image written
here can be read back by the file package or copied onto real media.

Slices into the map handed out by Get are tracked and must be released
before the image is closed or resized. This is done through run time
checking.
*/
package fmap
