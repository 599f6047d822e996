package rpi

import (
	"fmt"
	"unsafe"
)

// BCM2835 system timer, p172. A free-running 64-bit counter at 1MHz; we only
// read the low word.
type stT struct {
	cs  uint32
	clo uint32
	chi uint32
	c0  uint32
	c1  uint32
	c2  uint32
	c3  uint32
}

// SysTimer reads the BCM2835 system timer. At 1MHz it's far too coarse to
// clock out bits, but it's exactly right for pacing inter-frame latch gaps.
type SysTimer struct {
	st *stT
}

func (rp *RPi) SystemTimer() (*SysTimer, error) {
	if rp.st == nil {
		var (
			bufOffs uintptr
			err     error
		)
		rp.stBuf, bufOffs, err = rp.mapMem(ST_OFFSET+rp.hw.periphBase, int(unsafe.Sizeof(stT{})))
		if err != nil {
			return nil, fmt.Errorf("couldn't map stT at %08X: %v", ST_OFFSET+rp.hw.periphBase, err)
		}
		rp.st = (*stT)(unsafe.Pointer(&rp.stBuf[bufOffs]))
	}
	return &SysTimer{st: rp.st}, nil
}

func (t *SysTimer) Now() uint32 {
	return t.st.clo
}

func (t *SysTimer) Frequency() uint32 {
	return 1000000
}
