// Package simflash is an in-memory model of an SPI NOR flash chip. It
// plays the role of the external collaborator the driver itself never
// touches directly — the SPI bus and the scheduler/event loop that
// decides when to call the worker: something has to answer the sfcb
// driver's SPI transactions in tests and in the demo command, and this
// is it.
package simflash

import (
	"fmt"

	"github.com/akaeba/sfcb-go/sfcb"
)

const addrBytes = 3
const istBytes = 1
const headerOffset = istBytes + addrBytes

// Flash is a byte-addressable in-memory flash. Erased cells read
// 0xFF; a sector erase sets the whole sector back to 0xFF; page
// programming can only clear bits, mirroring real NOR flash physics
// (program only clears bits; only an erase sets them back to 1).
type Flash struct {
	desc sfcb.FlashDescriptor
	mem  []byte

	writeEnabled bool
	// busyFor simulates WIP: the next N status reads report busy
	// before clearing, so tests exercise the driver's WIP-poll loop
	// instead of completing every operation in one shot.
	busyFor int
	// busyCycles is how many status reads a program/erase keeps the
	// WIP bit set for, configured via BusyCycles.
	busyCycles int
}

// New creates a freshly erased simulated flash matching desc's
// geometry.
func New(desc sfcb.FlashDescriptor) *Flash {
	mem := make([]byte, desc.TotalSizeBytes)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &Flash{desc: desc, mem: mem}
}

// BusyCycles configures how many status reads report write-in-progress
// after a program/erase before clearing, so callers can exercise
// Worker's polling loop deterministically.
func (f *Flash) BusyCycles(n int) {
	f.busyCycles = n
}

func getAddress(buf []byte) uint32 {
	return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
}

// Transfer emulates one full-duplex SPI transaction: buf holds the
// request on entry and is overwritten with the response in place,
// exactly the contract Driver.SPIBuffer()[:n] expects from the host.
func (f *Flash) Transfer(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	op := buf[0]
	switch op {
	case f.desc.OpcodeReadStatus:
		status := byte(0)
		if f.busyFor > 0 {
			status |= f.desc.WIPMask
			f.busyFor--
		}
		if len(buf) > 1 {
			buf[1] = status
		}

	case f.desc.OpcodeWriteEnable:
		f.writeEnabled = true

	case f.desc.OpcodeEraseSector:
		addr := getAddress(buf[istBytes:])
		start := addr &^ (f.desc.SectorSizeBytes - 1)
		for i := uint32(0); i < f.desc.SectorSizeBytes; i++ {
			f.mem[start+i] = 0xFF
		}
		f.writeEnabled = false
		f.busyFor = f.busyCycles

	case f.desc.OpcodePageProgram:
		addr := getAddress(buf[istBytes:])
		payload := buf[headerOffset:]
		for i, b := range payload {
			f.mem[addr+uint32(i)] &= b
		}
		f.writeEnabled = false
		f.busyFor = f.busyCycles

	case f.desc.OpcodeReadData:
		addr := getAddress(buf[istBytes:])
		for i := headerOffset; i < len(buf); i++ {
			buf[i] = f.mem[int(addr)+i-headerOffset]
		}

	default:
		return fmt.Errorf("simflash: unknown opcode 0x%02x", op)
	}

	return nil
}

// Bytes exposes the raw flash contents, for assertions in tests.
func (f *Flash) Bytes() []byte {
	return f.mem
}
