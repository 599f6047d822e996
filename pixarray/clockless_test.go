package pixarray

import (
	"testing"

	"github.com/clockless-go/clockless"
	"github.com/clockless-go/clockless/chipset"
	"github.com/clockless-go/clockless/pixel"
)

type countClock struct {
	t uint32
}

func (c *countClock) Now() uint32 {
	c.t++
	return c.t
}

func (c *countClock) Frequency() uint32 {
	return 1000000000
}

type countPin struct {
	edges int
}

func (p *countPin) SetOutput() {}

func (p *countPin) Hi() {
	p.edges++
}

func (p *countPin) Lo() {
	p.edges++
}

func TestClocklessStripWrite(t *testing.T) {
	pin := &countPin{}
	c, err := clockless.NewController(clockless.Config{
		Pin:    pin,
		Clock:  &countClock{},
		Timing: chipset.WS2812,
		Order:  pixel.GRB,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	s, err := NewClocklessStrip(c, 4, 3)
	if err != nil {
		t.Fatalf("NewClocklessStrip: %v", err)
	}
	pa := NewPixArray(4, 3, s)
	pa.SetAll(pixel.Pixel{R: 1, G: 2, B: 3, W: -1})
	if got := pa.GetPixel(2); got.R != 1 || got.G != 2 || got.B != 3 {
		t.Fatalf("GetPixel got: %v, want 1/2/3", got)
	}
	if err := pa.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// 4 pixels of 24 bits, one rising and one falling edge each
	if want := 4 * 24 * 2; pin.edges != want {
		t.Errorf("pin edges got: %d, want: %d", pin.edges, want)
	}
}

type countStreamer struct {
	frames int
	bits   int
}

func (c *countStreamer) StreamBits(bb *clockless.BitBuffer) error {
	c.frames++
	c.bits = bb.Len()
	return nil
}

func TestStreamStripWrite(t *testing.T) {
	out := &countStreamer{}
	c, err := clockless.NewStreamController(clockless.StreamConfig{
		Out:    out,
		Timing: chipset.WS2812,
		Order:  pixel.GRB,
	})
	if err != nil {
		t.Fatalf("NewStreamController: %v", err)
	}
	s, err := NewStreamStrip(c, 2, 3)
	if err != nil {
		t.Fatalf("NewStreamStrip: %v", err)
	}
	pa := NewPixArray(2, 3, s)
	pa.SetOne(1, pixel.Pixel{R: 255, W: -1})
	if err := pa.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.frames != 1 {
		t.Fatalf("got %d frames, want 1", out.frames)
	}
	if want := 2*24*3 + 120; out.bits != want {
		t.Errorf("frame bits got: %d, want: %d", out.bits, want)
	}
}

func TestStripRejectsBadColorCount(t *testing.T) {
	if _, err := NewClocklessStrip(nil, 1, 5); err == nil {
		t.Errorf("5 colors: wanted error, got nil")
	}
	if _, err := NewStreamStrip(nil, 1, 2); err == nil {
		t.Errorf("2 colors: wanted error, got nil")
	}
}
