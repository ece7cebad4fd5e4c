// Package sfcb drives one or more append-only circular buffer queues
// stored on an external SPI NOR flash. The driver is non-blocking: the
// only I/O primitive it exposes is "here is the next SPI transaction
// to issue", built in Worker's shared buffer. The caller owns the bus,
// clocks the transaction, stores the response back into the same
// buffer and calls Worker again.
package sfcb

// FlashDescriptor carries the geometry and opcode table of a
// supported SPI NOR flash part. The set of descriptors is closed at
// build time and selected by index at New, mirroring how the source
// firmware picks a part with a single compile-time switch.
type FlashDescriptor struct {
	Name string

	TotalSizeBytes   uint32
	SectorSizeBytes  uint32
	PageSizeBytes    uint32
	PagesPerSector   uint32

	OpcodeReadData     byte
	OpcodeReadStatus    byte
	OpcodeWriteEnable   byte
	OpcodeEraseSector   byte
	OpcodePageProgram   byte

	// WIPMask is applied to the status register byte; a non-zero
	// result means write-in-progress.
	WIPMask byte
}

// descriptors is the compile-time flash part table. Adding a part
// means appending an entry here, same as the original firmware's
// per-part #define blocks gated behind a flash-type compile switch.
var descriptors = []FlashDescriptor{
	{
		Name:              "W25Q16JV",
		TotalSizeBytes:    2 * 1024 * 1024,
		SectorSizeBytes:   4096,
		PageSizeBytes:     256,
		PagesPerSector:    4096 / 256,
		OpcodeReadData:    0x03,
		OpcodeReadStatus:  0x05,
		OpcodeWriteEnable: 0x06,
		OpcodeEraseSector: 0x20,
		OpcodePageProgram: 0x02,
		WIPMask:           0x01,
	},
	{
		Name:              "W25X20",
		TotalSizeBytes:    256 * 1024,
		SectorSizeBytes:   4096,
		PageSizeBytes:     256,
		PagesPerSector:    4096 / 256,
		OpcodeReadData:    0x03,
		OpcodeReadStatus:  0x05,
		OpcodeWriteEnable: 0x06,
		OpcodeEraseSector: 0x20,
		OpcodePageProgram: 0x02,
		WIPMask:           0x01,
	},
}

// TotalSize reports the flash part's total addressable capacity in
// bytes.
func (fd FlashDescriptor) TotalSize() uint32 {
	return fd.TotalSizeBytes
}

// DescriptorByIndex looks up a flash descriptor by its table index. It
// is the only way the driver learns the geometry of the flash it
// talks to; an out-of-range index is rejected by New.
func DescriptorByIndex(idx int) (FlashDescriptor, bool) {
	if idx < 0 || idx >= len(descriptors) {
		return FlashDescriptor{}, false
	}
	return descriptors[idx], true
}

// NumDescriptors reports how many flash parts are registered in the
// compile-time table.
func NumDescriptors() int {
	return len(descriptors)
}

// DescriptorIndexByName looks up a flash descriptor's table index by
// its Name field, for configuration formats (sfcbcfg) that name a
// part rather than hard-coding its index.
func DescriptorIndexByName(name string) (int, bool) {
	for i, d := range descriptors {
		if d.Name == name {
			return i, true
		}
	}
	return 0, false
}
