package clockless

import (
	"fmt"

	"github.com/clockless-go/clockless/chipset"
	"github.com/clockless-go/clockless/pixel"
)

// State is the transmission state machine's position. Idle until a
// transmission starts; Complete and Aborted are terminal for one call and
// the engine returns to Idle semantics on the next Transmit.
type State int

const (
	Idle State = iota
	Transmitting
	Complete
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Transmitting:
		return "transmitting"
	case Complete:
		return "complete"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Mode selects the interrupt/latency recovery policy.
type Mode int

const (
	// Strict runs the bit loop with no overrun checks. The caller must
	// guarantee the transmission is not preempted (interrupts masked, or a
	// core dedicated to the loop).
	Strict Mode = iota
	// InterruptTolerant leaves preemption enabled and aborts the frame if
	// a deadline is overrun by more than the chipset can absorb. A dropped
	// frame is acceptable; a corrupted frame is not, since a long stall
	// mid-stream latches a partial frame and desynchronizes the chain.
	InterruptTolerant
)

// Engine emits a pixel iterator's bytes as correctly-timed pulses on one
// pin, most significant bit first. All nanosecond-to-tick conversion happens
// at construction; the bit loop is pure unsigned integer arithmetic.
type Engine struct {
	clock CycleClock
	pin   PinDriver
	mode  Mode

	period    uint32 // ticks per bit
	oneLow    uint32 // remaining ticks at which a one bit drops low
	zeroLow   uint32 // remaining ticks at which a zero bit drops low
	lateLimit uint32 // tolerated ticks past a deadline before aborting

	state State
}

// interruptMarginNS is subtracted from the chipset latch when computing the
// abort threshold, so a frame is dropped before the strip can latch it.
const interruptMarginNS = 1000

// NewEngine builds an engine for one pin and one chipset timing. The pin is
// configured as an output, driven low.
func NewEngine(clock CycleClock, pin PinDriver, t chipset.Timing, mode Mode) (*Engine, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("bad timing: %v", err)
	}
	freq := clock.Frequency()
	if freq == 0 {
		return nil, fmt.Errorf("clock reports zero frequency")
	}
	period := TicksCeil(freq, t.Period())
	// Rounding the low windows down keeps the realized high phases at or
	// above the datasheet minimums.
	oneLow := TicksFloor(freq, t.T3)
	zeroLow := TicksFloor(freq, t.T2+t.T3)
	if period == 0 || zeroLow == 0 {
		return nil, fmt.Errorf("clock at %dHz too coarse for %v", freq, t)
	}
	lateNS := t.Latch
	if lateNS > interruptMarginNS {
		lateNS -= interruptMarginNS
	}
	e := &Engine{
		clock:     clock,
		pin:       pin,
		mode:      mode,
		period:    period,
		oneLow:    oneLow,
		zeroLow:   zeroLow,
		lateLimit: TicksCeil(freq, lateNS),
		state:     Idle,
	}
	pin.SetOutput()
	return e, nil
}

// State returns the outcome of the most recent transmission.
func (e *Engine) State() State {
	return e.state
}

// Transmit drains the iterator onto the pin and returns Complete, or
// Aborted if a deadline overrun was detected in InterruptTolerant mode.
// After an abort the pin is left low and no further writes occur; the
// caller's next frame simply retries with fresh timing.
func (e *Engine) Transmit(it *pixel.Iterator) State {
	e.state = Transmitting
	next := e.clock.Now()
	for it.HasNext() {
		n := it.NumChannels()
		for ch := 0; ch < n; ch++ {
			b := it.LoadAndScale(ch)
			for i := 0; i < 8; i++ {
				if e.mode == InterruptTolerant {
					if now := e.clock.Now(); int32(now-next) > int32(e.lateLimit) {
						e.pin.Lo()
						e.state = Aborted
						return e.state
					}
				}
				next = e.clock.Now() + e.period
				low := e.zeroLow
				if b&0x80 != 0 {
					low = e.oneLow
				}
				e.pin.Hi()
				for int32(next-e.clock.Now()) > int32(low) {
				}
				e.pin.Lo()
				WaitUntil(e.clock, next)
				b <<= 1
			}
		}
		it.StepDithering()
		it.Advance()
	}
	e.state = Complete
	return e.state
}
