package flash

import "testing"

import (
	"errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func layout() []SegmentDesc {
	return []SegmentDesc{
		{Count: 2, Offset: 0, Size: 64},
		{Count: 1, Offset: 256, Size: 128},
	}
}

func TestMemDevices(t *testing.T) {
	m, devices := MemDevices(layout())
	require.Len(t, devices, 1)
	assert.Equal(t, uint32(3), devices[0].SegmentCount())
	assert.Equal(t, uint64(384), devices[0].Size())
	assert.Len(t, m.Bytes(0), 384)
	assert.True(t, IsBlank(m.Bytes(0)))
	assert.Equal(t, m, devices[0].Ops)
}

func TestProgramOnlyClearsBits(t *testing.T) {
	m, devices := MemDevices(layout())
	sd := &devices[0].Segments[0]
	require.NoError(t, m.Write(sd, 0, 1, 4, []byte{0xf0, 0x0f}))
	require.NoError(t, m.Write(sd, 0, 1, 4, []byte{0x3c, 0xff}))
	buf := make([]byte, 2)
	require.NoError(t, m.Read(sd, 0, 1, 4, buf))
	assert.Equal(t, []byte{0x30, 0x0f}, buf)
	assert.Equal(t, byte(0x30), m.Bytes(0)[64+4])
}

func TestBlankCheckAndErase(t *testing.T) {
	m, devices := MemDevices(layout())
	sd := &devices[0].Segments[1]
	require.NoError(t, m.BlankCheck(sd, 0, 0, 0, 128))
	require.NoError(t, m.Write(sd, 0, 0, 100, []byte{0}))
	assert.Equal(t, ErrNotBlank, m.BlankCheck(sd, 0, 0, 96, 8))
	require.NoError(t, m.BlankCheck(sd, 0, 0, 0, 96))
	require.NoError(t, m.Erase(sd, 0, 0))
	require.NoError(t, m.BlankCheck(sd, 0, 0, 0, 128))
	assert.Equal(t, 1, m.Counters.Erases)
	assert.Equal(t, 4, m.Counters.BlankChecks)
}

func TestVerify(t *testing.T) {
	m, devices := MemDevices(layout())
	sd := &devices[0].Segments[0]
	require.NoError(t, m.Write(sd, 0, 0, 0, []byte("abc")))
	assert.NoError(t, m.Verify(sd, 0, 0, 0, []byte("abc")))
	assert.Equal(t, ErrVerify, m.Verify(sd, 0, 0, 0, []byte("abd")))
}

func TestRange(t *testing.T) {
	m, devices := MemDevices(layout())
	sd := &devices[0].Segments[0]
	assert.Equal(t, ErrRange, m.Write(sd, 0, 2, 0, []byte{0}))
	assert.Equal(t, ErrRange, m.Write(sd, 0, 1, 63, []byte{0, 0}))
	assert.Equal(t, ErrRange, m.Read(sd, 3, 0, 0, []byte{0}))
}

func TestFault(t *testing.T) {
	m, devices := MemDevices(layout())
	sd := &devices[0].Segments[0]
	boom := errors.New("boom")
	m.Fault = func(op Op, device, segment, offset uint32) error {
		if op == OpWrite && segment == 1 {
			return boom
		}
		return nil
	}
	assert.Equal(t, boom, m.Write(sd, 0, 1, 0, []byte{0}))
	assert.NoError(t, m.Write(sd, 0, 0, 0, []byte{0}))
	assert.True(t, IsBlank(m.Bytes(0)[64:128]))
	require.NoError(t, m.EraseDevice(&devices[0], 0))
	assert.True(t, IsBlank(m.Bytes(0)))
	assert.Equal(t, "blank-check", OpBlankCheck.String())
}
