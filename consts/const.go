package consts

// Flag holds page descriptor flags in positive logic: a set bit means
// the flag is set. The media stores them inverted, see fdisk.encodeDesc.
type Flag uint16

// BLOCKSIZE is the block size a disk description gets when it names none.
const BLOCKSIZE = 512

const (
	ACTIVE Flag = 1 << iota
	USED
)

// Erased byte value of NOR flash.
const ERASED byte = 0xff

const (
	ERASED_CRC   uint16 = 0xffff
	ERASED_FLAGS uint16 = 0xffff
	ERASED_BLOCK uint32 = 0xffffffff
)

func (f Flag) Has(o Flag) bool {
	return f&o == o
}
