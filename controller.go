package clockless

import (
	"fmt"

	"github.com/clockless-go/clockless/chipset"
	"github.com/clockless-go/clockless/pixel"
)

// Config binds one pin, one chipset timing and one color layout to a
// controller. All fields except Dither and Mode are required.
type Config struct {
	Pin    PinDriver
	Clock  CycleClock
	Timing chipset.Timing
	Order  int
	White  pixel.WhiteMode
	Dither bool
	Mode   Mode
}

// Controller owns one (pin, timing, color-order) configuration and
// sequences iterator construction, engine invocation and inter-frame latch
// enforcement.
type Controller struct {
	eng    *Engine
	clock  CycleClock
	order  int
	white  pixel.WhiteMode
	dither *pixel.Ditherer

	latch   uint32 // ticks the line must stay low between frames
	lastEnd uint32 // tick at which the previous transmission ended
	sent    bool
}

// NewController validates the configuration and returns a controller ready
// to Show. The GPIO line is owned exclusively by this controller for the
// duration of every Show call.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Pin == nil || cfg.Clock == nil {
		return nil, fmt.Errorf("pin and clock are required")
	}
	eng, err := NewEngine(cfg.Clock, cfg.Pin, cfg.Timing, cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("couldn't build engine: %v", err)
	}
	c := &Controller{
		eng:   eng,
		clock: cfg.Clock,
		order: cfg.Order,
		white: cfg.White,
		latch: TicksCeil(cfg.Clock.Frequency(), cfg.Timing.Latch),
	}
	if cfg.Dither {
		c.dither = &pixel.Ditherer{}
	}
	// Fail on a bad order now rather than on the first Show.
	if _, err := pixel.NewIterator([]byte{0, 0, 0, 0}, 1, cfg.Order, cfg.White, 0, nil); err != nil {
		return nil, fmt.Errorf("bad pixel layout: %v", err)
	}
	return c, nil
}

// ResetDithering clears the accumulated dither error.
func (c *Controller) ResetDithering() {
	if c.dither != nil {
		c.dither.Reset()
	}
}

// waitLatch spins until the chipset's minimum reset time has elapsed since
// the previous transmission ended. Spin-based rather than sleeping, so the
// subsequent transmission starts with deterministic timing.
func (c *Controller) waitLatch() {
	if !c.sent {
		return
	}
	// Unsigned elapsed-time check first: after an idle gap of more than
	// half the tick range, lastEnd+latch would otherwise look like a
	// future target and spin for up to half a wrap. The residual cost of
	// a full wrap aliasing to a small elapsed value is one extra latch
	// wait, which is harmless.
	if c.clock.Now()-c.lastEnd >= c.latch {
		return
	}
	WaitUntil(c.clock, c.lastEnd+c.latch)
}

func (c *Controller) transmit(it *pixel.Iterator) State {
	c.waitLatch()
	st := c.eng.Transmit(it)
	// An aborted frame still drove the line; the latch clock restarts
	// either way.
	c.lastEnd = c.clock.Now()
	c.sent = true
	return st
}

// Show transmits numPixels' worth of the borrowed buffer at the given
// brightness scale. The buffer must stay valid and unmodified by any other
// goroutine until Show returns. An Aborted result is not an error: the next
// Show retries with fresh timing.
func (c *Controller) Show(pixels []byte, numPixels int, scale uint8) (State, error) {
	it, err := pixel.NewIterator(pixels, numPixels, c.order, c.white, scale, c.dither)
	if err != nil {
		return Idle, fmt.Errorf("couldn't build iterator: %v", err)
	}
	return c.transmit(it), nil
}

// ShowColor transmits a single color repeated numPixels times, without
// requiring a backing buffer.
func (c *Controller) ShowColor(p pixel.Pixel, numPixels int, scale uint8) (State, error) {
	it, err := pixel.NewColorIterator(p, numPixels, c.order, c.white, scale, c.dither)
	if err != nil {
		return Idle, fmt.Errorf("couldn't build iterator: %v", err)
	}
	return c.transmit(it), nil
}
