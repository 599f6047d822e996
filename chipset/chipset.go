// Package chipset holds the per-chipset timing descriptors for clockless
// ("one-wire") LED protocols. A bit is transmitted as a high pulse followed
// by a low tail: a zero bit is high for T1, a one bit is high for T1+T2, and
// every bit period lasts T1+T2+T3. All values come from the respective
// datasheets.
package chipset

import (
	"fmt"
)

// Timing describes one chipset family's bit timing, in nanoseconds.
//
// T1 is the mark common to every bit, T2 the additional high time that
// distinguishes a one from a zero, T3 the low time completing the period.
// Latch is the minimum sustained low between frames for the strip to latch.
type Timing struct {
	Name  string
	T1    uint32
	T2    uint32
	T3    uint32
	Latch uint32
}

var (
	WS2811      = Timing{"WS2811", 320, 320, 640, 50000}
	WS2812      = Timing{"WS2812", 250, 625, 375, 50000}
	WS2812B     = Timing{"WS2812B", 400, 450, 450, 280000}
	SK6812      = Timing{"SK6812", 300, 300, 600, 80000}
	SK6812RGBW  = Timing{"SK6812RGBW", 300, 300, 600, 80000}
	TM1809      = Timing{"TM1809", 350, 350, 550, 50000}
	UCS1903     = Timing{"UCS1903", 500, 1500, 500, 50000}
	WS2811_400k = Timing{"WS2811@400kHz", 800, 800, 900, 50000}
)

var byName = map[string]Timing{
	"ws2811":      WS2811,
	"ws2812":      WS2812,
	"ws2812b":     WS2812B,
	"sk6812":      SK6812,
	"sk6812rgbw":  SK6812RGBW,
	"tm1809":      TM1809,
	"ucs1903":     UCS1903,
	"ws2811_400k": WS2811_400k,
}

// ByName looks up a timing descriptor by its lower-case chipset name.
func ByName(name string) (Timing, error) {
	t, ok := byName[name]
	if !ok {
		return Timing{}, fmt.Errorf("unknown chipset %q", name)
	}
	return t, nil
}

// Period returns the total bit period T1+T2+T3 in nanoseconds.
func (t Timing) Period() uint32 {
	return t.T1 + t.T2 + t.T3
}

// Validate checks the descriptor for physical plausibility. A failure is a
// programming error in the configuration, not a runtime condition.
func (t Timing) Validate() error {
	if t.T1 == 0 || t.T2 == 0 || t.T3 == 0 {
		return fmt.Errorf("%s: all of T1/T2/T3 must be non-zero, got %d/%d/%d", t.Name, t.T1, t.T2, t.T3)
	}
	if t.Period() > 10000 {
		return fmt.Errorf("%s: bit period %dns implausibly long", t.Name, t.Period())
	}
	if t.Latch < t.Period() {
		return fmt.Errorf("%s: latch %dns shorter than one bit period", t.Name, t.Latch)
	}
	return nil
}

func (t Timing) String() string {
	return fmt.Sprintf("%s(%d/%d/%d)", t.Name, t.T1, t.T2, t.T3)
}
