package simflash_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akaeba/sfcb-go/sfcb"
	"github.com/akaeba/sfcb-go/simflash"
)

func descriptor(t *testing.T) sfcb.FlashDescriptor {
	t.Helper()
	fd, ok := sfcb.DescriptorByIndex(0)
	require.True(t, ok)
	return fd
}

func TestNewFlashIsErased(t *testing.T) {
	fl := simflash.New(descriptor(t))
	for i, b := range fl.Bytes() {
		if b != 0xFF {
			t.Fatalf("byte %d = 0x%02x, want 0xFF", i, b)
			break
		}
	}
}

func TestProgramOnlyClearsBits(t *testing.T) {
	fd := descriptor(t)
	fl := simflash.New(fd)

	// Write-enable, then program byte 0 to 0x0F at address 0.
	require.NoError(t, fl.Transfer([]byte{fd.OpcodeWriteEnable}))
	req := make([]byte, 1+3+1)
	req[0] = fd.OpcodePageProgram
	req[4] = 0x0F
	require.NoError(t, fl.Transfer(req))
	assert.Equal(t, byte(0x0F), fl.Bytes()[0])

	// Programming again with 0xF0 must AND into the existing value,
	// never set bits back: 0x0F & 0xF0 = 0x00.
	require.NoError(t, fl.Transfer([]byte{fd.OpcodeWriteEnable}))
	req[4] = 0xF0
	require.NoError(t, fl.Transfer(req))
	assert.Equal(t, byte(0x00), fl.Bytes()[0])
}

func TestEraseSectorResetsToFF(t *testing.T) {
	fd := descriptor(t)
	fl := simflash.New(fd)

	require.NoError(t, fl.Transfer([]byte{fd.OpcodeWriteEnable}))
	req := make([]byte, 1+3+1)
	req[0] = fd.OpcodePageProgram
	req[4] = 0x00
	require.NoError(t, fl.Transfer(req))
	require.Equal(t, byte(0x00), fl.Bytes()[0])

	require.NoError(t, fl.Transfer([]byte{fd.OpcodeWriteEnable}))
	eraseReq := []byte{fd.OpcodeEraseSector, 0, 0, 0}
	require.NoError(t, fl.Transfer(eraseReq))
	assert.Equal(t, byte(0xFF), fl.Bytes()[0])
}

func TestBusyCyclesDelaysStatusClear(t *testing.T) {
	fd := descriptor(t)
	fl := simflash.New(fd)
	fl.BusyCycles(2)

	require.NoError(t, fl.Transfer([]byte{fd.OpcodeWriteEnable}))
	eraseReq := []byte{fd.OpcodeEraseSector, 0, 0, 0}
	require.NoError(t, fl.Transfer(eraseReq))

	statusReq := []byte{fd.OpcodeReadStatus, 0}
	require.NoError(t, fl.Transfer(statusReq))
	assert.NotZero(t, statusReq[1]&fd.WIPMask, "first poll should report busy")

	require.NoError(t, fl.Transfer(statusReq))
	assert.NotZero(t, statusReq[1]&fd.WIPMask, "second poll should report busy")

	require.NoError(t, fl.Transfer(statusReq))
	assert.Zero(t, statusReq[1]&fd.WIPMask, "third poll should report idle")
}

func TestTransferRejectsUnknownOpcode(t *testing.T) {
	fl := simflash.New(descriptor(t))
	err := fl.Transfer([]byte{0xAA})
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fd := descriptor(t)
	fl := simflash.New(fd)

	require.NoError(t, fl.Transfer([]byte{fd.OpcodeWriteEnable}))
	req := make([]byte, 1+3+1)
	req[0] = fd.OpcodePageProgram
	req[4] = 0x42
	require.NoError(t, fl.Transfer(req))

	path := filepath.Join(t.TempDir(), "flash.img")
	require.NoError(t, fl.Save(path))

	loaded, err := simflash.Load(path, fd)
	require.NoError(t, err)
	assert.Equal(t, fl.Bytes(), loaded.Bytes())
}

func TestLoadRejectsCorruptTrailer(t *testing.T) {
	fd := descriptor(t)
	fl := simflash.New(fd)

	path := filepath.Join(t.TempDir(), "flash.img")
	require.NoError(t, fl.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = simflash.Load(path, fd)
	assert.ErrorIs(t, err, simflash.ErrImageCorrupt)
}
