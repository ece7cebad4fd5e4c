package sfcb

// Worker drives the currently staged job forward by exactly one SPI
// transaction. If SPILen() is non-zero after the call, the host must
// transact that many bytes (full-duplex, in place in SPIBuffer) before
// calling Worker again. Worker never blocks and is the only
// suspension point in the driver.
func (d *Driver) Worker() {
	switch d.cmd {
	case cmdIdle:
		return
	case cmdMkcb:
		d.workerMkcb()
	case cmdAdd:
		d.workerAdd()
	case cmdGet:
		d.workerGet()
	case cmdRaw:
		d.workerRaw()
	default:
		d.fail(ErrKindUnexpected)
	}
}

// wipPoll: a fresh job or a status byte with any WIPMask bit set
// re-issues the read-status request and tells the caller to return;
// otherwise the pending packet is cleared and execution falls through
// to the next stage.
func (d *Driver) wipPoll() (waiting bool) {
	if d.spiLen == 0 || (d.spiBuf[1]&d.flash.WIPMask) != 0 {
		d.spiBuf[0] = d.flash.OpcodeReadStatus
		d.spiBuf[1] = 0
		d.spiLen = 2
		return true
	}
	d.spiLen = 0
	return false
}

func (d *Driver) emitWriteEnable() {
	d.spiBuf[0] = d.flash.OpcodeWriteEnable
	d.spiLen = istBytes
}

func (d *Driver) emitEraseSector(addr uint32) {
	d.spiBuf[0] = d.flash.OpcodeEraseSector
	putAddress(d.spiBuf[1:], addr)
	d.spiLen = istBytes + addrBytes
}

// emitReadData requests n bytes of flash contents starting at addr.
// The response lands at offset headerOffset in SPIBuffer once the
// host transacts it.
func (d *Driver) emitReadData(addr uint32, n int) {
	d.spiLen = uint16(headerOffset + n)
	for i := 0; i < int(d.spiLen); i++ {
		d.spiBuf[i] = 0
	}
	d.spiBuf[0] = d.flash.OpcodeReadData
	putAddress(d.spiBuf[1:], addr)
}

// emitPageProgramHeader writes the page-program opcode and addr into
// SPIBuffer and returns the offset where the payload starts; the
// caller fills the payload and sets SPILen (done inline in workerAdd).
func (d *Driver) emitPageProgramHeader(addr uint32) int {
	d.spiBuf[0] = d.flash.OpcodePageProgram
	putAddress(d.spiBuf[1:], addr)
	return istBytes + addrBytes
}

// workerMkcb scans every page of every stale queue to reconstruct
// NumEntries, the id extremes and the next free write page, erasing
// the oldest sector and rescanning when a queue is found full.
func (d *Driver) workerMkcb() {
	switch d.stage {
	case stage0:
		if d.wipPoll() {
			return
		}
		d.stage = stage1
		fallthrough
	case stage1:
		q := &d.queues[d.iterQueue]

		if d.spiLen != 0 {
			resp := d.spiBuf[headerOffset : headerOffset+recordHeaderSize]
			hdr := decodeHeader(resp)

			switch {
			case hdr.Magic == q.MagicNum:
				q.NumEntries++
				if hdr.ID > q.IDNumMax {
					q.IDNumMax = hdr.ID
					q.StartPageIDMax = d.iterPage
				}
				if hdr.ID < q.IDNumMin {
					q.IDNumMin = hdr.ID
					q.StartPageIDMin = d.iterPage
				}
			case !q.Initialised && isErasedHeader(resp):
				q.StartPageWrite = d.iterPage
				q.Initialised = true
			}
			// Anything else is a corrupted empty page: left as-is,
			// scanning continues past it.
		}

		if d.iterElem < q.NumEntriesMax {
			d.iterPage = elementAddress(q, d.flash, uint32(d.iterElem))
			d.iterElem++
			d.emitReadData(d.iterPage, recordHeaderSize)
			return
		}

		if q.Initialised {
			d.advanceToNextStaleQueue()
			return
		}

		// Queue full: no free page was found scanning it. Erase the
		// sector holding the oldest record and rescan.
		d.emitWriteEnable()
		d.stage = stage2
		return
	case stage2:
		q := &d.queues[d.iterQueue]
		addr := sectorAlign(q.StartPageIDMin, d.flash)
		d.emitEraseSector(addr)
		d.stage = stage3
		return
	case stage3:
		q := &d.queues[d.iterQueue]
		d.iterElem = 0
		q.NumEntries = 0
		q.IDNumMax = 0
		q.IDNumMin = 0xFFFFFFFF
		d.spiBuf[0] = d.flash.OpcodeReadStatus
		d.spiBuf[1] = 0
		d.spiLen = 2
		d.stage = stage0
		return
	default:
		d.fail(ErrKindUnexpected)
	}
}

// advanceToNextStaleQueue moves iterQueue forward to the next used,
// not-yet-initialised queue, or terminates the MKCB job if none
// remain.
func (d *Driver) advanceToNextStaleQueue() {
	d.iterQueue++
	for d.iterQueue < len(d.queues) {
		q := &d.queues[d.iterQueue]
		if !q.Used {
			break
		}
		if !q.Initialised {
			d.iterElem = 0
			// The pending response belongs to the previous queue's last
			// page; drop it so stage1 starts this queue with a fresh read.
			d.spiLen = 0
			return
		}
		d.iterQueue++
	}
	d.terminate()
}

// workerAdd programs a new record page by page, polling WIP between
// pages.
func (d *Driver) workerAdd() {
	switch d.stage {
	case stage0:
		if d.wipPoll() {
			return
		}
		d.stage = stage1
		fallthrough
	case stage1:
		if d.dataCopy < d.dataLen {
			d.emitWriteEnable()
			d.stage = stage2
			return
		}
		d.terminate()
		return
	case stage2:
		q := &d.queues[d.iterQueue]
		offset := d.emitPageProgramHeader(d.iterPage)

		payloadAvail := int(d.flash.PageSizeBytes)
		if d.dataCopy == 0 {
			hdr := recordHeader{Magic: q.MagicNum, ID: q.IDNumMax + 1}
			hdr.encode(d.spiBuf[offset : offset+recordHeaderSize])
			offset += recordHeaderSize
			payloadAvail -= recordHeaderSize
		}

		remaining := int(d.dataLen - d.dataCopy)
		n := remaining
		if n > payloadAvail {
			n = payloadAvail
		}
		copy(d.spiBuf[offset:offset+n], d.data[d.dataCopy:int(d.dataCopy)+n])

		d.spiLen = uint16(offset + n)
		d.dataCopy += uint16(n)
		d.iterPage += d.flash.PageSizeBytes
		d.stage = stage0
		return
	default:
		d.fail(ErrKindUnexpected)
	}
}

// workerGet issues one read-data transaction covering header+payload,
// then copies the payload portion into the caller's buffer.
func (d *Driver) workerGet() {
	switch d.stage {
	case stage0:
		if d.wipPoll() {
			return
		}
		d.stage = stage1
		fallthrough
	case stage1:
		need := headerOffset + recordHeaderSize + int(d.dataLen)
		if need > len(d.spiBuf) {
			d.fail(ErrKindSPIBufSize)
			return
		}
		d.emitReadData(d.iterPage, recordHeaderSize+int(d.dataLen))
		d.stage = stage2
		return
	case stage2:
		start := headerOffset + recordHeaderSize
		copy(d.data[:d.dataLen], d.spiBuf[start:start+int(d.dataLen)])
		d.terminate()
		return
	default:
		d.fail(ErrKindUnexpected)
	}
}

// workerRaw performs a single direct read, bypassing all queue
// semantics.
func (d *Driver) workerRaw() {
	switch d.stage {
	case stage0:
		if d.wipPoll() {
			return
		}
		d.stage = stage1
		fallthrough
	case stage1:
		if headerOffset+int(d.dataLen) > len(d.spiBuf) {
			d.fail(ErrKindSPIBufSize)
			return
		}
		d.emitReadData(d.iterPage, int(d.dataLen))
		d.stage = stage2
		return
	case stage2:
		copy(d.data[:d.dataLen], d.spiBuf[headerOffset:headerOffset+int(d.dataLen)])
		d.terminate()
		return
	default:
		d.fail(ErrKindUnexpected)
	}
}
