package clockless

import (
	"reflect"
	"testing"

	"github.com/clockless-go/clockless/chipset"
	"github.com/clockless-go/clockless/pixel"
)

func TestBitBufferPacking(t *testing.T) {
	bb := NewBitBuffer(16)
	for _, b := range []int{1, 1, 0, 0, 1, 0, 1, 0, 1} {
		bb.AppendBit(b == 1)
	}
	if bb.Len() != 9 {
		t.Fatalf("Len got: %d, want: 9", bb.Len())
	}
	if got := bb.Bytes(); !reflect.DeepEqual(got, []byte{0xca, 0x80}) {
		t.Errorf("Bytes got: %x, want: ca80", got)
	}
	if got := bb.Words(); !reflect.DeepEqual(got, []uint32{0xca800000}) {
		t.Errorf("Words got: %08x, want: ca800000", got)
	}
	bb.Reset()
	if bb.Len() != 0 || len(bb.Bytes()) != 0 {
		t.Errorf("Reset left %d bits, %d bytes", bb.Len(), len(bb.Bytes()))
	}
}

func TestSlotAndBitRates(t *testing.T) {
	if got := BitRate(chipset.WS2812); got != 800000 {
		t.Errorf("WS2812 BitRate got: %d, want: 800000", got)
	}
	if got := SlotRate(chipset.WS2812); got != 2400000 {
		t.Errorf("WS2812 SlotRate got: %d, want: 2400000", got)
	}
}

func TestLatchSlots(t *testing.T) {
	// 50us of low at 2.4MHz slot rate.
	if got := LatchSlots(chipset.WS2812); got != 120 {
		t.Errorf("WS2812 LatchSlots got: %d, want: 120", got)
	}
}

// decodeSymbols reconstructs the LED bytes from a rendered 3-slot stream
// and checks the symbol shape as it goes.
func decodeSymbols(t *testing.T, bb *BitBuffer, numBytes int) []byte {
	t.Helper()
	slot := func(i int) bool {
		return bb.Bytes()[i/8]&(0x80>>uint(i%8)) != 0
	}
	out := make([]byte, numBytes)
	for i := 0; i < numBytes*8; i++ {
		if !slot(3 * i) {
			t.Errorf("bit %d: first slot low, want high", i)
		}
		if slot(3*i + 2) {
			t.Errorf("bit %d: third slot high, want low", i)
		}
		if slot(3*i + 1) {
			out[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return out
}

func TestRenderFrame(t *testing.T) {
	it, err := pixel.NewIterator([]byte{10, 20, 30}, 1, pixel.GRB, pixel.WhiteNone, 255, nil)
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	bb := NewBitBuffer(FrameSlots(chipset.WS2812, 1, 3))
	RenderFrame(it, chipset.WS2812, bb)
	if want := 24*3 + 120; bb.Len() != want {
		t.Fatalf("Len got: %d, want: %d", bb.Len(), want)
	}
	got := decodeSymbols(t, bb, 3)
	if want := []byte{20, 10, 30}; !reflect.DeepEqual(got, want) {
		t.Errorf("decoded bytes got: %v, want: %v", got, want)
	}
	// The latch tail must be entirely low.
	for i := 24 * 3; i < bb.Len(); i++ {
		if bb.Bytes()[i/8]&(0x80>>uint(i%8)) != 0 {
			t.Fatalf("latch slot %d high, want low", i)
		}
	}
}

func TestRenderFrameAllZero(t *testing.T) {
	it, err := pixel.NewIterator(make([]byte, 9), 3, pixel.GRB, pixel.WhiteNone, 255, &pixel.Ditherer{})
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	bb := NewBitBuffer(FrameSlots(chipset.WS2812, 3, 3))
	RenderFrame(it, chipset.WS2812, bb)
	got := decodeSymbols(t, bb, 9)
	for i, b := range got {
		if b != 0 {
			t.Errorf("byte %d got: %d, want: 0", i, b)
		}
	}
}

type captureStreamer struct {
	frames [][]byte
	bits   []int
	err    error
}

func (c *captureStreamer) StreamBits(bb *BitBuffer) error {
	frame := make([]byte, len(bb.Bytes()))
	copy(frame, bb.Bytes())
	c.frames = append(c.frames, frame)
	c.bits = append(c.bits, bb.Len())
	return c.err
}

func TestStreamController(t *testing.T) {
	out := &captureStreamer{}
	c, err := NewStreamController(StreamConfig{
		Out:    out,
		Timing: chipset.WS2812,
		Order:  pixel.GRB,
	})
	if err != nil {
		t.Fatalf("NewStreamController: %v", err)
	}
	if err := c.Show([]byte{10, 20, 30}, 1, 255); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if err := c.ShowColor(pixel.Pixel{R: 1}, 2, 255); err != nil {
		t.Fatalf("ShowColor: %v", err)
	}
	if len(out.frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(out.frames))
	}
	if want := 24*3 + 120; out.bits[0] != want {
		t.Errorf("frame 0 bits got: %d, want: %d", out.bits[0], want)
	}
	if want := 48*3 + 120; out.bits[1] != want {
		t.Errorf("frame 1 bits got: %d, want: %d", out.bits[1], want)
	}
}

func TestStreamControllerRejectsBadConfig(t *testing.T) {
	if _, err := NewStreamController(StreamConfig{Timing: chipset.WS2812}); err == nil {
		t.Errorf("nil output: wanted error, got nil")
	}
	if _, err := NewStreamController(StreamConfig{Out: &captureStreamer{}, Timing: chipset.Timing{}}); err == nil {
		t.Errorf("zero timing: wanted error, got nil")
	}
}

func BenchmarkRenderFrame(b *testing.B) {
	src := make([]byte, 300*3)
	bb := NewBitBuffer(FrameSlots(chipset.WS2812, 300, 3))
	for i := 0; i < b.N; i++ {
		it, _ := pixel.NewIterator(src, 300, pixel.GRB, pixel.WhiteNone, 128, nil)
		bb.Reset()
		RenderFrame(it, chipset.WS2812, bb)
	}
}
