// Package rpi drives clockless LED strips from a Raspberry Pi. Linux can't
// busy-wait with nanosecond accuracy, so instead of bit-banging a GPIO the
// serializer renders each frame to a 3-slots-per-bit stream and hands it to
// the PWM block via DMA. The BCM2835 system timer is still exposed for
// latch-gap accounting.
package rpi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

type RPi struct {
	mbox     *os.File
	hw       *hw
	dmaBuf   mmap.MMap
	dma      *dmaT
	pwmBuf   mmap.MMap
	pwm      *pwmT
	gpioBuf  mmap.MMap
	gpio     *gpioT
	cmClkBuf mmap.MMap
	cmClk    *cmClkT
	stBuf    mmap.MMap
	st       *stT
}

func NewRPi() (*RPi, error) {
	hw, err := detectHardware()
	if err != nil {
		return nil, fmt.Errorf("couldn't detect RPi hardware: %v", err)
	}
	rp := RPi{
		hw: hw,
	}
	err = rp.mboxOpen()
	if err != nil {
		return nil, fmt.Errorf("couldn't open mailbox: %v", err)
	}
	return &rp, nil
}

// Hardware returns the detected board name.
func (rp *RPi) Hardware() string {
	return rp.hw.name
}

type hw struct {
	hwType     int
	periphBase uintptr
	vcBase     uintptr
	name       string
}

const (
	RPI_HWVER_TYPE_UNKNOWN = iota
	RPI_HWVER_TYPE_PI1
	RPI_HWVER_TYPE_PI2
	RPI_HWVER_TYPE_PI4

	PERIPH_BASE_RPI  = 0x20000000
	PERIPH_BASE_RPI2 = 0x3f000000
	PERIPH_BASE_RPI4 = 0xfe000000

	VIDEOCORE_BASE_RPI  = 0x40000000
	VIDEOCORE_BASE_RPI2 = 0xc0000000
)

// detectHardware works out which Raspberry Pi variant we're running on from
// the device tree's revision word.
func detectHardware() (*hw, error) {
	f, err := os.Open("/proc/device-tree/system/linux,revision")
	if err != nil {
		return nil, fmt.Errorf("couldn't open linux revision file: %v", err)
	}
	b := make([]byte, 4)
	n, err := f.Read(b)
	f.Close() // Ignore error
	if err != nil {
		return nil, fmt.Errorf("couldn't read revision: %v", err)
	}
	if n != 4 {
		return nil, fmt.Errorf("revision file got %d instead of 4 bytes", n)
	}
	r := bytes.NewReader(b)
	var ver uint32
	err = binary.Read(r, binary.BigEndian, &ver)
	if err != nil {
		return nil, fmt.Errorf("somehow couldn't convert 4 bytes to a uint32: %v", err)
	}
	if rp, ok := rasPiVariants[ver]; ok {
		return &rp, nil
	}
	return nil, fmt.Errorf("couldn't identify hardware revision %X", ver)
}

var rasPiVariants = map[uint32]hw{
	//
	// Pi 1 family
	//
	0x02: {
		hwType:     RPI_HWVER_TYPE_PI1,
		periphBase: PERIPH_BASE_RPI,
		vcBase:     VIDEOCORE_BASE_RPI,
		name:       "Model B",
	},
	0x0d: {
		hwType:     RPI_HWVER_TYPE_PI1,
		periphBase: PERIPH_BASE_RPI,
		vcBase:     VIDEOCORE_BASE_RPI,
		name:       "Model B",
	},
	0x10: {
		hwType:     RPI_HWVER_TYPE_PI1,
		periphBase: PERIPH_BASE_RPI,
		vcBase:     VIDEOCORE_BASE_RPI,
		name:       "Model B+",
	},
	0x900032: {
		hwType:     RPI_HWVER_TYPE_PI1,
		periphBase: PERIPH_BASE_RPI,
		vcBase:     VIDEOCORE_BASE_RPI,
		name:       "Model B+",
	},
	0x900092: {
		hwType:     RPI_HWVER_TYPE_PI1,
		periphBase: PERIPH_BASE_RPI,
		vcBase:     VIDEOCORE_BASE_RPI,
		name:       "Pi Zero v1.2",
	},
	0x900093: {
		hwType:     RPI_HWVER_TYPE_PI1,
		periphBase: PERIPH_BASE_RPI,
		vcBase:     VIDEOCORE_BASE_RPI,
		name:       "Pi Zero v1.3",
	},
	0x9000c1: {
		hwType:     RPI_HWVER_TYPE_PI1,
		periphBase: PERIPH_BASE_RPI,
		vcBase:     VIDEOCORE_BASE_RPI,
		name:       "Pi Zero W v1.1",
	},

	//
	// Pi 2
	//
	0xA01041: {
		hwType:     RPI_HWVER_TYPE_PI2,
		periphBase: PERIPH_BASE_RPI2,
		vcBase:     VIDEOCORE_BASE_RPI2,
		name:       "Pi 2",
	},
	0xA21041: {
		hwType:     RPI_HWVER_TYPE_PI2,
		periphBase: PERIPH_BASE_RPI2,
		vcBase:     VIDEOCORE_BASE_RPI2,
		name:       "Pi 2",
	},
	0xA22042: {
		hwType:     RPI_HWVER_TYPE_PI2,
		periphBase: PERIPH_BASE_RPI2,
		vcBase:     VIDEOCORE_BASE_RPI2,
		name:       "Pi 2",
	},

	//
	// Pi 3 (same peripheral layout as Pi 2)
	//
	0xA02082: {
		hwType:     RPI_HWVER_TYPE_PI2,
		periphBase: PERIPH_BASE_RPI2,
		vcBase:     VIDEOCORE_BASE_RPI2,
		name:       "Pi 3",
	},
	0xA22082: {
		hwType:     RPI_HWVER_TYPE_PI2,
		periphBase: PERIPH_BASE_RPI2,
		vcBase:     VIDEOCORE_BASE_RPI2,
		name:       "Pi 3",
	},
	0xA020D3: {
		hwType:     RPI_HWVER_TYPE_PI2,
		periphBase: PERIPH_BASE_RPI2,
		vcBase:     VIDEOCORE_BASE_RPI2,
		name:       "Pi 3 B+",
	},
	0x9020e0: {
		hwType:     RPI_HWVER_TYPE_PI2,
		periphBase: PERIPH_BASE_RPI2,
		vcBase:     VIDEOCORE_BASE_RPI2,
		name:       "Model 3 A+",
	},

	//
	// Pi 4 family
	//
	0xA03111: {
		hwType:     RPI_HWVER_TYPE_PI4,
		periphBase: PERIPH_BASE_RPI4,
		vcBase:     VIDEOCORE_BASE_RPI2,
		name:       "Pi 4 Model B - 1GB v1.1",
	},
	0xB03112: {
		hwType:     RPI_HWVER_TYPE_PI4,
		periphBase: PERIPH_BASE_RPI4,
		vcBase:     VIDEOCORE_BASE_RPI2,
		name:       "Pi 4 Model B - 2GB v1.2",
	},
	0xC03112: {
		hwType:     RPI_HWVER_TYPE_PI4,
		periphBase: PERIPH_BASE_RPI4,
		vcBase:     VIDEOCORE_BASE_RPI2,
		name:       "Pi 4 Model B - 4GB v1.2",
	},
	0xD03114: {
		hwType:     RPI_HWVER_TYPE_PI4,
		periphBase: PERIPH_BASE_RPI4,
		vcBase:     VIDEOCORE_BASE_RPI2,
		name:       "Pi 4 Model B - 8GB v1.2",
	},
	0xC03130: {
		hwType:     RPI_HWVER_TYPE_PI4,
		periphBase: PERIPH_BASE_RPI4,
		vcBase:     VIDEOCORE_BASE_RPI2,
		name:       "Pi 400 - 4GB v1.0",
	},
}
