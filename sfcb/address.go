package sfcb

// ceilDivide divides two values, always rounding up. The source
// implementation's two-branch version agrees with the single standard
// formula for every input this driver ever computes (dividend is
// always a non-negative byte count, divisor a fixed positive
// page/sector size), so the single formula is used here.
func ceilDivide(dividend, divisor uint32) uint32 {
	if divisor == 0 {
		return 0
	}
	return (dividend + divisor - 1) / divisor
}

// maxU32 is a tiny helper kept local to this package: Go's builtin
// max (1.21+) already works for uint32 but queue.go calls this at a
// spot where a named helper reads better than an inline builtin call.
func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// elementAddress computes the absolute byte address of the page
// holding element index elem within a queue:
//
//	addr = startSector*sectorSize + pagesPerElement*pageSize*elem
func elementAddress(q *QueueDescriptor, fd FlashDescriptor, elem uint32) uint32 {
	return q.StartSector*fd.SectorSizeBytes + uint32(q.PagesPerElement)*fd.PageSizeBytes*elem
}

// sectorAlign rounds addr down to the start of the sector containing
// it.
func sectorAlign(addr uint32, fd FlashDescriptor) uint32 {
	return addr &^ (fd.SectorSizeBytes - 1)
}
