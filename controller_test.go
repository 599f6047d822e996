package clockless

import (
	"testing"

	"github.com/clockless-go/clockless/chipset"
	"github.com/clockless-go/clockless/pixel"
)

func ws2812Controller(t *testing.T, dither bool) (*Controller, *fakeClock, *recordPin) {
	t.Helper()
	clk := &fakeClock{freq: 1000000000}
	pin := newRecordPin(clk)
	c, err := NewController(Config{
		Pin:    pin,
		Clock:  clk,
		Timing: chipset.WS2812,
		Order:  pixel.GRB,
		Dither: dither,
		Mode:   Strict,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c, clk, pin
}

func TestShowTransmitsFrame(t *testing.T) {
	c, _, pin := ws2812Controller(t, false)
	st, err := c.Show([]byte{10, 20, 30}, 1, 255)
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if st != Complete {
		t.Fatalf("Show got: %v, want: complete", st)
	}
	bits, _, _ := decode(t, pin.events, 875-clockJitter)
	// GRB wire order: 20, 10, 30.
	want := []byte{20, 10, 30}
	if len(bits) != 24 {
		t.Fatalf("got %d bits, want 24", len(bits))
	}
	for i, wb := range want {
		var got byte
		for j := 0; j < 8; j++ {
			got = got<<1 | byte(bits[i*8+j])
		}
		if got != wb {
			t.Errorf("wire byte %d got: %d, want: %d", i, got, wb)
		}
	}
}

func TestShowEnforcesLatch(t *testing.T) {
	c, _, pin := ws2812Controller(t, false)
	if _, err := c.Show([]byte{1, 2, 3}, 1, 255); err != nil {
		t.Fatalf("first Show: %v", err)
	}
	endFirst := pin.events[len(pin.events)-1].at
	firstCount := len(pin.events)
	if _, err := c.Show([]byte{1, 2, 3}, 1, 255); err != nil {
		t.Fatalf("second Show: %v", err)
	}
	startSecond := pin.events[firstCount].at
	if gap := startSecond - endFirst; gap < 50000 {
		t.Errorf("inter-frame gap got: %d ticks, want >= 50000", gap)
	}
}

func TestShowAfterLongIdleDoesNotSpin(t *testing.T) {
	c, clk, pin := ws2812Controller(t, false)
	if _, err := c.Show([]byte{1, 2, 3}, 1, 255); err != nil {
		t.Fatalf("first Show: %v", err)
	}
	// Idle for more than half the tick range. The latch target computed
	// from lastEnd now reads as "in the future" under wraparound
	// comparison; the second Show must still start promptly.
	clk.jump(1 << 31)
	firstCount := len(pin.events)
	before := clk.peek()
	if _, err := c.Show([]byte{1, 2, 3}, 1, 255); err != nil {
		t.Fatalf("second Show: %v", err)
	}
	if start := pin.events[firstCount].at; start-before > 100 {
		t.Errorf("second frame delayed %d ticks after long idle", start-before)
	}
}

func TestFirstShowDoesNotWait(t *testing.T) {
	c, clk, pin := ws2812Controller(t, false)
	before := clk.peek()
	if _, err := c.Show([]byte{1, 2, 3}, 1, 255); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if start := pin.events[0].at; start-before > 100 {
		t.Errorf("first frame delayed %d ticks before transmitting", start-before)
	}
}

func TestShowColor(t *testing.T) {
	c, _, pin := ws2812Controller(t, false)
	st, err := c.ShowColor(pixel.Pixel{R: 255, G: 255, B: 255}, 2, 255)
	if err != nil {
		t.Fatalf("ShowColor: %v", err)
	}
	if st != Complete {
		t.Fatalf("ShowColor got: %v, want: complete", st)
	}
	bits, _, _ := decode(t, pin.events, 875-clockJitter)
	if len(bits) != 48 {
		t.Fatalf("got %d bits, want 48", len(bits))
	}
	for i, b := range bits {
		if b != 1 {
			t.Errorf("bit %d got: 0, want: 1", i)
		}
	}
}

func TestShowRejectsShortBuffer(t *testing.T) {
	c, _, _ := ws2812Controller(t, false)
	if _, err := c.Show([]byte{1, 2, 3}, 2, 255); err == nil {
		t.Errorf("short buffer: wanted error, got nil")
	}
}

func TestDitherPersistsAcrossShows(t *testing.T) {
	c, _, pin := ws2812Controller(t, true)
	// raw 10 at scale 128 scales to 1290/256: five frames of 5 and then a
	// 6 as the carry pays back.
	src := []byte{0, 10, 0} // G=10 so the first wire byte carries it
	sum := 0
	frames := 256
	for f := 0; f < frames; f++ {
		pin.events = pin.events[:0]
		if _, err := c.Show(src, 1, 128); err != nil {
			t.Fatalf("Show: %v", err)
		}
		bits, _, _ := decode(t, pin.events, 875-clockJitter)
		var g byte
		for j := 0; j < 8; j++ {
			g = g<<1 | byte(bits[j])
		}
		sum += int(g)
	}
	if want := 10 * 129; sum != want {
		t.Errorf("%d-frame sum got: %d, want: %d", frames, sum, want)
	}
	c.ResetDithering()
}

func TestControllerRejectsBadConfig(t *testing.T) {
	clk := &fakeClock{freq: 1000000000}
	pin := newRecordPin(clk)
	if _, err := NewController(Config{Clock: clk, Timing: chipset.WS2812}); err == nil {
		t.Errorf("nil pin: wanted error, got nil")
	}
	if _, err := NewController(Config{Pin: pin, Clock: clk, Timing: chipset.WS2812, Order: 42}); err == nil {
		t.Errorf("bad order: wanted error, got nil")
	}
}
