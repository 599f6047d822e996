package rpi

import (
	"fmt"
	"log"

	"github.com/clockless-go/clockless"
	"github.com/clockless-go/clockless/chipset"
)

// WS281xOut clocks rendered bit streams out of the PWM block via DMA. Each
// 32-bit word in the DMA buffer is serialized MSB-first at the chipset's slot
// rate; the two PWM channels are interleaved word by word, so a stream for
// one strip occupies every other word.
type WS281xOut struct {
	rp              *RPi
	buf             *DMABuf
	words           []uint32
	wordsPerChannel int
	numPins         int
}

// NewWS281xOut sets up DMA, PWM clocking and the output pins for strips of up
// to maxPixels pixels of numColors channels each. pins holds one GPIO per PWM
// channel; both channels transmit the same stream.
func NewWS281xOut(rp *RPi, t chipset.Timing, maxPixels, numColors, dma int, pins []int) (*WS281xOut, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("bad timing: %v", err)
	}
	if len(pins) == 0 || len(pins) > RPI_PWM_CHANNELS {
		return nil, fmt.Errorf("want 1-%d pins, got %d", RPI_PWM_CHANNELS, len(pins))
	}
	maxSlots := clockless.FrameSlots(t, maxPixels, numColors)
	w := WS281xOut{
		rp:              rp,
		wordsPerChannel: (maxSlots + 31) / 32,
		numPins:         len(pins),
	}
	bytes := uint(w.wordsPerChannel * 4 * RPI_PWM_CHANNELS)

	if err := rp.InitGPIO(); err != nil {
		return nil, fmt.Errorf("couldn't init GPIO: %v", err)
	}
	if err := rp.InitDMA(dma); err != nil {
		return nil, fmt.Errorf("couldn't init DMA %d: %v", dma, err)
	}
	var err error
	w.buf, err = rp.GetDMABuf(bytes)
	if err != nil {
		return nil, fmt.Errorf("couldn't get DMA buffer: %v", err)
	}
	if err := rp.InitPWM(uint(clockless.SlotRate(t)), w.buf, bytes, pins); err != nil {
		rp.FreeDMABuf(w.buf) // Ignore error
		return nil, fmt.Errorf("couldn't init PWM: %v", err)
	}
	w.words = w.buf.Uint32Slice()
	log.Printf("WS281x output ready: %d slots/channel, %d words/channel\n", maxSlots, w.wordsPerChannel)
	return &w, nil
}

// StreamBits waits for any in-flight transfer, copies the stream into the
// interleaved DMA buffer and starts the next transfer. It returns as soon as
// DMA is started; the following call's wait is what guarantees the frame (and
// its latch tail) has fully left the wire.
func (w *WS281xOut) StreamBits(bb *clockless.BitBuffer) error {
	words := bb.Words()
	if len(words) > w.wordsPerChannel {
		return fmt.Errorf("stream of %d words exceeds buffer of %d", len(words), w.wordsPerChannel)
	}

	// We need to wait for DMA to be done before we start touching the buffer it's outputting
	if err := w.rp.WaitForDMAEnd(); err != nil {
		return fmt.Errorf("pre-DMA wait failed: %v", err)
	}

	for i, word := range words {
		for c := 0; c < RPI_PWM_CHANNELS; c++ {
			if c < w.numPins {
				w.words[RPI_PWM_CHANNELS*i+c] = word
			} else {
				w.words[RPI_PWM_CHANNELS*i+c] = 0
			}
		}
	}
	w.buf.c.txLen = uint32(len(words) * 4 * RPI_PWM_CHANNELS)
	w.rp.StartDMA(w.buf)
	return nil
}

// Close waits for the last transfer, stops the PWM clock and releases the
// Videocore buffer.
func (w *WS281xOut) Close() error {
	err := w.rp.WaitForDMAEnd()
	w.rp.StopPWM()
	if fe := w.rp.FreeDMABuf(w.buf); err == nil {
		err = fe
	}
	return err
}
