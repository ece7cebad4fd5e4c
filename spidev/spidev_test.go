package spidev

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

// TestSpiIOCMessageNMatchesKernelMacro checks the hand-derived ioctl
// request code for SPI_IOC_MESSAGE(1) against the well-known value of
// the kernel's _IOW('k', 0, char[32]) macro (32 = sizeof(struct
// spi_ioc_transfer) on a 64-bit kernel), since this is the one piece
// of this package with no hardware to exercise it against.
func TestSpiIOCMessageNMatchesKernelMacro(t *testing.T) {
	const want = 0x40206b00
	assert.Equal(t, uintptr(want), spiIOCMessageN(1))
}

func TestSpiIOCTransferSize(t *testing.T) {
	var x spiIOCTransfer
	assert.EqualValues(t, 32, unsafe.Sizeof(x), "sizeof(spiIOCTransfer) must match the kernel ABI struct")
}
