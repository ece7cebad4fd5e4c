// Package spidev talks to a real SPI NOR flash part over Linux's
// /dev/spidevX.Y character device. It plays the same Transactor role
// simflash.Flash plays in tests, but against actual hardware, via the
// SPI_IOC_MESSAGE ioctl rather than an in-process byte array.
package spidev

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl constants for the Linux spidev driver (linux/spi/spidev.h).
// Go has no generated binding for these, so they are hand-derived here
// the same way a raw SG_IO ioctl constant would be.
const (
	spiIOCMagic       = 'k'
	spiIOCWrMode      = 0x40016b01
	spiIOCWrBitsPerWd = 0x40016b03
	spiIOCWrMaxSpeed  = 0x40046b04
)

// spiIOCMessageN computes SPI_IOC_MESSAGE(N), the ioctl request code
// for transferring N spi_ioc_transfer structs in one call. Mirrors the
// _IOW('k', 0, char[len]) macro from spidev.h with len =
// n*sizeof(spi_ioc_transfer).
func spiIOCMessageN(n int) uintptr {
	const structSize = 32 // sizeof(spi_ioc_transfer) on a 64-bit kernel
	size := uintptr(n * structSize)
	return (1 << 30) | (spiIOCMagic << 8) | (size << 16)
}

// spiIOCTransfer mirrors struct spi_ioc_transfer from linux/spi/spidev.h.
type spiIOCTransfer struct {
	txBuf       uint64
	rxBuf       uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	pad         uint16
}

// Device is a full-duplex SPI transport bound to one /dev/spidevX.Y
// node, implementing simflash.Transactor and sfcb's host-side
// transaction contract.
type Device struct {
	fd int
}

// Open opens path (e.g. "/dev/spidev0.0") and configures it for mode,
// bitsPerWord and speedHz.
func Open(path string, mode uint8, bitsPerWord uint8, speedHz uint32) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("spidev: open %s: %w", path, err)
	}
	d := &Device{fd: fd}

	if err := d.ioctlByte(spiIOCWrMode, mode); err != nil {
		d.Close()
		return nil, fmt.Errorf("spidev: set mode: %w", err)
	}
	if err := d.ioctlByte(spiIOCWrBitsPerWd, bitsPerWord); err != nil {
		d.Close()
		return nil, fmt.Errorf("spidev: set bits per word: %w", err)
	}
	if err := d.ioctlU32(spiIOCWrMaxSpeed, speedHz); err != nil {
		d.Close()
		return nil, fmt.Errorf("spidev: set max speed: %w", err)
	}

	return d, nil
}

func (d *Device) ioctlByte(req uintptr, v uint8) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(unsafe.Pointer(&v)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *Device) ioctlU32(req uintptr, v uint32) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(unsafe.Pointer(&v)))
	if errno != 0 {
		return errno
	}
	return nil
}

// Close releases the underlying file descriptor.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	fd := d.fd
	d.fd = -1
	return unix.Close(fd)
}

// Transfer clocks out buf and overwrites it in place with the
// response, full-duplex: exactly the contract the driver's suspension
// point expects from the host.
func (d *Device) Transfer(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	xfer := spiIOCTransfer{
		txBuf:  uint64(uintptr(unsafe.Pointer(&buf[0]))),
		rxBuf:  uint64(uintptr(unsafe.Pointer(&buf[0]))),
		length: uint32(len(buf)),
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), spiIOCMessageN(1), uintptr(unsafe.Pointer(&xfer)))
	if errno != 0 {
		return fmt.Errorf("spidev: SPI_IOC_MESSAGE: %w", errno)
	}
	return nil
}
