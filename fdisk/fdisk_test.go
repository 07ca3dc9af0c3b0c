package fdisk

import "testing"

import (
	"bytes"
	"math/rand"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

import (
	"github.com/timtadh/flashdisk/flash"
)

type T testing.T

const testBlockSize = 32

// Four pages of 32 bytes: one header page and three data pages.
const smallSegment = 4 * testBlockSize

// Eight pages: two header pages and six data pages.
const largeSegment = 8 * testBlockSize

func (t *T) devices(count, size uint32) (*flash.Mem, []flash.DeviceDesc) {
	return flash.MemDevices([]flash.SegmentDesc{
		{Count: count, Offset: 0, Size: size},
	})
}

func (t *T) logger() (*logrus.Logger, *logtest.Hook) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func (t *T) config(devices []flash.DeviceDesc) Config {
	log, _ := t.logger()
	return Config{
		BlockSize:     testBlockSize,
		Devices:       devices,
		UnavailBlocks: 3,
		CompactSegs:   2,
		Logger:        log,
	}
}

func (t *T) open(cfg Config) *Disk {
	d, err := Open(cfg)
	require.NoError(t, err)
	return d
}

func (t *T) disk(count, size uint32) (*Disk, *flash.Mem) {
	m, devices := t.devices(count, size)
	cfg := t.config(devices)
	if size == largeSegment {
		cfg.UnavailBlocks = 6
	}
	return t.open(cfg), m
}

func (t *T) data(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, testBlockSize)
}

func (t *T) write(d *Disk, block uint32, fill byte) {
	require.NoError(t, d.WriteBlock(block, t.data(fill)), "write block %d", block)
}

func (t *T) assertBlock(d *Disk, block uint32, expect []byte) {
	buf := make([]byte, testBlockSize)
	require.NoError(t, d.ReadBlock(block, buf), "read block %d", block)
	require.Equal(t, expect, buf, "block %d", block)
}

func (t *T) verify(d *Disk) {
	require.NoError(t, d.Verify())
}

func (t *T) rand_data(r *rand.Rand) []byte {
	buf := make([]byte, testBlockSize)
	r.Read(buf)
	return buf
}
