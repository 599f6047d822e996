// Package clockless implements the transmission engine for clockless
// ("one-wire") LED protocols: the per-bit timing state machine, the
// controller facade around it, and the bit-buffer renderer used by
// buffered/DMA outputs that cannot busy-wait.
package clockless

import (
	"time"
)

// CycleClock is a monotonically increasing hardware tick counter with a
// known frequency. Tick counters are expected to wrap a 32-bit range during
// long-running programs; all comparisons in this package are wraparound-safe.
type CycleClock interface {
	Now() uint32
	// Frequency returns the tick rate in ticks per second.
	Frequency() uint32
}

// tickReached reports whether now has reached target, allowing for counter
// wraparound.
func tickReached(now, target uint32) bool {
	return int32(now-target) >= 0
}

// WaitUntil spins until the clock reaches target and returns the tick that
// satisfied the wait.
func WaitUntil(c CycleClock, target uint32) uint32 {
	now := c.Now()
	for !tickReached(now, target) {
		now = c.Now()
	}
	return now
}

// TicksCeil converts nanoseconds to ticks, rounding up. Use for durations
// that must be at least the given length: clockless chipsets tolerate a
// pulse slightly long but not slightly short.
func TicksCeil(freq uint32, ns uint32) uint32 {
	return uint32((uint64(ns)*uint64(freq) + 999999999) / 1000000000)
}

// TicksFloor converts nanoseconds to ticks, rounding down. Use for
// durations that must be at most the given length.
func TicksFloor(freq uint32, ns uint32) uint32 {
	return uint32(uint64(ns) * uint64(freq) / 1000000000)
}

type timeClock struct {
	start time.Time
}

// NewTimeClock returns a CycleClock backed by the host monotonic clock at a
// nominal 1GHz (one tick per nanosecond). Hosted operating systems cannot
// hold the tolerances of a real strip, but the clock is good enough for
// latch spacing and for development against a recorded pin.
func NewTimeClock() CycleClock {
	return &timeClock{start: time.Now()}
}

func (c *timeClock) Now() uint32 {
	return uint32(time.Since(c.start))
}

func (c *timeClock) Frequency() uint32 {
	return 1000000000
}
