package simflash

import (
	"fmt"

	"github.com/akaeba/sfcb-go/sfcb"
)

// Transactor is anything able to service one full-duplex SPI
// transaction, in place, the same contract *Flash.Transfer offers.
type Transactor interface {
	Transfer(buf []byte) error
}

// RunToIdle drives d.Worker() until the job it is currently processing
// completes, servicing every pending transaction against xfer. The
// driver itself never loops or blocks; a scheduler has to exist
// somewhere, and for tests and the demo command, this is it.
func RunToIdle(d *sfcb.Driver, xfer Transactor) error {
	for {
		d.Worker()

		if n := d.SPILen(); n > 0 {
			if err := xfer.Transfer(d.SPIBuffer()[:n]); err != nil {
				return err
			}
		}

		if !d.Busy() {
			break
		}
	}

	if kind := d.Error(); kind != sfcb.ErrKindNone {
		return fmt.Errorf("sfcb: worker failed: %s", kind)
	}
	return nil
}
