package config

import "testing"

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

import (
	"github.com/timtadh/flashdisk/consts"
	"github.com/timtadh/flashdisk/errors"
	"github.com/timtadh/flashdisk/fdisk"
	"github.com/timtadh/flashdisk/flash"
)

type T testing.T

const memory = `
block_size = 32
unavail_blocks = 3
compact_segs = 2
info_level = 2
background_erase = true

[[device]]
  [[device.segment]]
    count = 4
    offset = 0
    size = 128
`

func (t *T) logger() logrus.FieldLogger {
	log, _ := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log
}

func (t *T) imaged(backend string) string {
	return `
block_size = 32
unavail_blocks = 3

[[device]]
  image = "flash0.img"
  backend = "` + backend + `"
  [[device.segment]]
    count = 2
    offset = 0
    size = 128

[[device]]
  [[device.segment]]
    count = 2
    offset = 64
    size = 128
`
}

func (t *T) write(path, text string) {
	require.NoError(t, os.WriteFile(path, []byte(text), 0666))
}

func TestParse(x *testing.T) {
	t := (*T)(x)
	f, err := Parse([]byte(memory))
	require.NoError(t, err)
	assert.Equal(t, uint32(32), f.BlockSize)
	assert.Equal(t, uint32(3), f.UnavailBlocks)
	assert.Equal(t, uint32(2), f.CompactSegs)
	assert.Equal(t, uint32(DefaultAvailCompactSegs), f.AvailCompactSegs)
	assert.Equal(t, uint32(2), f.InfoLevel)
	assert.Equal(t, fdisk.BackgroundErase, f.Flags())
	require.Len(t, f.Devices, 1)
	assert.Equal(t, []flash.SegmentDesc{{Count: 4, Offset: 0, Size: 128}}, f.Devices[0].Segments)
}

func TestParseDefaults(x *testing.T) {
	t := (*T)(x)
	f, err := Parse([]byte(t.imaged("file")))
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultCompactSegs), f.CompactSegs)
	assert.Equal(t, uint32(DefaultAvailCompactSegs), f.AvailCompactSegs)
	assert.Equal(t, fdisk.Flags(0), f.Flags())
	assert.Equal(t, "flash0.img", f.Devices[0].Image)
	assert.Equal(t, BackendFile, f.Devices[0].Backend)
}

func TestParseDefaultBlockSize(x *testing.T) {
	t := (*T)(x)
	f, err := Parse([]byte("[[device]]\n[[device.segment]]\ncount = 4\nsize = 4096\n"))
	require.NoError(t, err)
	assert.Equal(t, uint32(consts.BLOCKSIZE), f.BlockSize)
}

func TestParseExplicitZero(x *testing.T) {
	t := (*T)(x)
	f, err := Parse([]byte("avail_compact_segs = 0\n" + memory))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), f.AvailCompactSegs)
}

func TestParseErrors(x *testing.T) {
	t := (*T)(x)
	bad := map[string]string{
		"syntax":      "block_size = ",
		"zero block":  "block_size = 0\n[[device]]\n[[device.segment]]\ncount = 1\nsize = 64\n",
		"no devices":  "block_size = 32\n",
		"no segments": "block_size = 32\n[[device]]\nimage = \"x\"\n",
		"backend":     "block_size = 32\n[[device]]\nimage = \"x\"\nbackend = \"tape\"\n[[device.segment]]\ncount = 1\nsize = 64\n",
		"no image":    "block_size = 32\n[[device]]\nbackend = \"file\"\n[[device.segment]]\ncount = 1\nsize = 64\n",
		"count":       "block_size = 32\n[[device]]\n[[device.segment]]\ncount = 0\nsize = 64\n",
		"type":        "block_size = \"big\"\n[[device]]\n[[device.segment]]\ncount = 1\nsize = 64\n",
	}
	for name, text := range bad {
		_, err := Parse([]byte(text))
		assert.True(t, errors.Is(err, errors.ErrConfig), "%v: %v", name, err)
	}
}

func TestOpenMemory(x *testing.T) {
	t := (*T)(x)
	f, err := Parse([]byte(memory))
	require.NoError(t, err)
	d, err := f.Open(t.logger())
	require.NoError(t, err)
	defer d.Close()
	require.NotNil(t, d.Mem)
	assert.Equal(t, uint32(9), d.BlockCount())
	assert.Equal(t, uint32(2), d.InfoLevel())

	data := bytes.Repeat([]byte{0x42}, 32)
	require.NoError(t, d.WriteBlock(4, data))
	buf := make([]byte, 32)
	require.NoError(t, d.ReadBlock(4, buf))
	assert.Equal(t, data, buf)
}

func TestOpenBadGeometry(x *testing.T) {
	t := (*T)(x)
	f, err := Parse([]byte(`
block_size = 32
unavail_blocks = 100

[[device]]
  [[device.segment]]
    count = 4
    size = 128
`))
	require.NoError(t, err)
	_, err = f.Open(t.logger())
	assert.True(t, errors.Is(err, errors.ErrConfig), "%v", err)
}

func TestLoadImages(x *testing.T) {
	for _, backend := range []string{BackendMmap, BackendFile} {
		x.Run(backend, func(x *testing.T) {
			t := (*T)(x)
			dir := x.TempDir()
			path := filepath.Join(dir, "disk.toml")
			t.write(path, t.imaged(backend))

			f, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, "flash0.img"), f.Devices[0].Image)
			assert.Equal(t, "", f.Devices[1].Image)

			d, err := f.Open(t.logger())
			require.NoError(t, err)
			// 4 segments of 3 pages less 3 held back
			assert.Equal(t, uint32(9), d.BlockCount())
			for b := uint32(0); b < d.BlockCount(); b++ {
				require.NoError(t, d.WriteBlock(b, bytes.Repeat([]byte{byte(b + 1)}, 32)))
			}
			require.NoError(t, d.Verify())
			require.NoError(t, d.Close())

			fi, err := os.Stat(f.Devices[0].Image)
			require.NoError(t, err)
			assert.Equal(t, int64(256), fi.Size())
		})
	}
}

func TestLoadMissing(x *testing.T) {
	t := (*T)(x)
	_, err := Load(filepath.Join(x.TempDir(), "nope.toml"))
	assert.True(t, errors.Is(err, errors.ErrConfig), "%v", err)
}

func TestImageSurvivesReopen(x *testing.T) {
	t := (*T)(x)
	dir := x.TempDir()
	path := filepath.Join(dir, "disk.toml")
	t.write(path, `
block_size = 32
unavail_blocks = 3

[[device]]
  image = "flash0.img"
  [[device.segment]]
    count = 4
    offset = 0
    size = 128
`)
	f, err := Load(path)
	require.NoError(t, err)
	d, err := f.Open(t.logger())
	require.NoError(t, err)
	data := bytes.Repeat([]byte{0x5a}, 32)
	require.NoError(t, d.WriteBlock(7, data))
	require.NoError(t, d.Close())

	d, err = f.Open(t.logger())
	require.NoError(t, err)
	defer d.Close()
	assert.Nil(t, d.Mem)
	buf := make([]byte, 32)
	require.NoError(t, d.ReadBlock(7, buf))
	assert.Equal(t, data, buf)
}
