// Package spistrip drives SPI-clocked LED strips. These have none of the
// one-wire timing constraints, so a plain writable device is all the
// transport needs.
package spistrip

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/clockless-go/clockless/pixel"
)

// This is satisfied by os.File, but this minimal interface makes testing easier
type dev interface {
	Fd() uintptr
	Write(b []byte) (n int, err error)
}

// LPD8806 is a 7-bit-per-channel SPI strip. Wire bytes carry the value in
// the low 7 bits with the top bit set; a run of zero bytes resets the strip's
// latch counters.
type LPD8806 struct {
	numPixels int
	pixels    []byte // wire bytes, 0x80|value
	sendBytes []byte // pixels plus the trailing reset bytes
	dev       dev
	g, r, b   int
}

func NewLPD8806(dev dev, numPixels int, spiSpeed uint32, order int) (*LPD8806, error) {
	g, r, b, err := pixel.WireOffsets(order)
	if err != nil {
		return nil, fmt.Errorf("couldn't get wire offsets: %v", err)
	}
	numReset := (numPixels + 31) / 32
	val := make([]byte, numPixels*3+numReset)
	for i := 0; i < numPixels*3; i++ {
		val[i] = 0x80
	}
	la := LPD8806{
		numPixels: numPixels,
		pixels:    val[:numPixels*3],
		sendBytes: val,
		dev:       dev,
		g:         g,
		r:         r,
		b:         b,
	}

	if spiSpeed != 0 {
		err := la.setSPISpeed(spiSpeed)
		if err != nil {
			return nil, fmt.Errorf("couldn't set SPI speed: %v", err)
		}
	}

	firstReset := make([]byte, numReset)
	_, err = dev.Write(firstReset)
	if err != nil {
		return nil, fmt.Errorf("couldn't reset: %v", err)
	}
	return &la, nil
}

const (
	_SPI_IOC_WR_MAX_SPEED_HZ = 0x40046B04
)

func (la *LPD8806) setSPISpeed(s uint32) error {
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		la.dev.Fd(),
		uintptr(_SPI_IOC_WR_MAX_SPEED_HZ),
		uintptr(unsafe.Pointer(&s)),
	)
	if errno == 0 {
		return nil
	}
	return errno
}

func (la *LPD8806) MaxPerChannel() int {
	return 127
}

func (la *LPD8806) GetPixel(i int) pixel.Pixel {
	return pixel.Pixel{
		R: int(la.pixels[i*3+la.r]) & 0x7f,
		G: int(la.pixels[i*3+la.g]) & 0x7f,
		B: int(la.pixels[i*3+la.b]) & 0x7f,
		W: -1,
	}
}

func (la *LPD8806) SetPixel(i int, p pixel.Pixel) {
	la.pixels[i*3+la.g] = byte(0x80 | p.G)
	la.pixels[i*3+la.r] = byte(0x80 | p.R)
	la.pixels[i*3+la.b] = byte(0x80 | p.B)
}

func (la *LPD8806) Write() error {
	_, err := la.dev.Write(la.sendBytes)
	return err
}
