package sfcb

import "encoding/binary"

// recordHeaderSize is sizeof(uint32)*2 on the wire: magic number and
// id number, little-endian.
const recordHeaderSize = 8

// addrBytes is the number of big-endian address bytes that follow the
// opcode on every flash command packet.
const addrBytes = 3

// istBytes is the one instruction byte every flash command starts
// with.
const istBytes = 1

// headerOffset is the index into spi_buf where response data begins
// for a read-data command: opcode + 24-bit address.
const headerOffset = istBytes + addrBytes

// recordHeader is the fixed-size prefix written at the first page of
// every record.
type recordHeader struct {
	Magic uint32
	ID    uint32
}

func (h recordHeader) encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.ID)
}

func decodeHeader(buf []byte) recordHeader {
	return recordHeader{
		Magic: binary.LittleEndian.Uint32(buf[0:4]),
		ID:    binary.LittleEndian.Uint32(buf[4:8]),
	}
}

// isErasedHeader reports whether the recordHeaderSize bytes of buf
// read back as erased flash (0xFF), i.e. nobody ever programmed a
// header there.
func isErasedHeader(buf []byte) bool {
	for _, b := range buf[:recordHeaderSize] {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// putAddress writes a 24-bit big-endian flash address into buf,
// matching the wire format opcode || addr_hi || addr_mid || addr_lo.
func putAddress(buf []byte, addr uint32) {
	buf[0] = byte(addr >> 16)
	buf[1] = byte(addr >> 8)
	buf[2] = byte(addr)
}
