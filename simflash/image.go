package simflash

import (
	"encoding/binary"
	"errors"
	"os"

	"github.com/snksoft/crc"

	"github.com/akaeba/sfcb-go/sfcb"
)

// crcTable starts from the standard CRC32 parameters and turns off
// the final XOR and output reflection.
var crcTable *crc.Table

func init() {
	params := crc.CRC32
	params.FinalXor = 0
	params.ReflectOut = false
	crcTable = crc.NewTable(params)
}

// ErrImageCorrupt is returned by Load when the trailing CRC32 does not
// match the flash contents that precede it.
var ErrImageCorrupt = errors.New("simflash: image CRC mismatch")

// Save persists the flash contents to path with a trailing big-endian
// CRC32 guarding the whole blob, for snapshotting a test fixture or a
// simulator session. This never touches the on-flash record format: a
// queue record is still validated by magic number alone, with no
// integrity checking beyond that.
func (f *Flash) Save(path string) error {
	h := crc.NewHashWithTable(crcTable)
	if _, err := h.Write(f.mem); err != nil {
		return err
	}

	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], uint32(h.CRC32()))

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.Write(f.mem); err != nil {
		return err
	}
	if _, err := out.Write(trailer[:]); err != nil {
		return err
	}
	return nil
}

// Load reads a flash image previously written by Save, verifying its
// CRC32 trailer and checking the payload length matches desc's total
// size.
func Load(path string, desc sfcb.FlashDescriptor) (*Flash, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) != int(desc.TotalSizeBytes)+4 {
		return nil, ErrImageCorrupt
	}

	mem := raw[:len(raw)-4]
	trailer := raw[len(raw)-4:]

	h := crc.NewHashWithTable(crcTable)
	if _, err := h.Write(mem); err != nil {
		return nil, err
	}
	if binary.BigEndian.Uint32(trailer) != uint32(h.CRC32()) {
		return nil, ErrImageCorrupt
	}

	out := make([]byte, len(mem))
	copy(out, mem)
	return &Flash{desc: desc, mem: out}, nil
}
