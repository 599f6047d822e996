package clockless

import (
	"fmt"

	"github.com/clockless-go/clockless/chipset"
	"github.com/clockless-go/clockless/pixel"
)

// Platforms that can't busy-wait (hosted kernels, DMA peripherals) consume
// the same bit-timing contract as a pre-rendered buffer: each LED bit
// becomes three equal slots clocked at 3x the bit rate, high-high-low for a
// one and high-low-low for a zero. The slot encoding is the standard NRZ
// expansion used by PWM/SPI/PIO senders.
const (
	SymbolOne  = 0x6 // 1 1 0
	SymbolZero = 0x4 // 1 0 0
)

// BitBuffer accumulates a bitstream most-significant-bit first.
type BitBuffer struct {
	b []byte
	n int
}

// NewBitBuffer returns a buffer with capacity for the given number of bits.
func NewBitBuffer(bits int) *BitBuffer {
	return &BitBuffer{b: make([]byte, 0, (bits+7)/8)}
}

// Reset empties the buffer, retaining its capacity.
func (bb *BitBuffer) Reset() {
	bb.b = bb.b[:0]
	bb.n = 0
}

// Len returns the number of bits appended.
func (bb *BitBuffer) Len() int {
	return bb.n
}

// AppendBit appends a single slot.
func (bb *BitBuffer) AppendBit(hi bool) {
	if bb.n%8 == 0 {
		bb.b = append(bb.b, 0)
	}
	if hi {
		bb.b[bb.n/8] |= 0x80 >> uint(bb.n%8)
	}
	bb.n++
}

// Bytes returns the bitstream packed MSB-first, zero-padded to a byte.
func (bb *BitBuffer) Bytes() []byte {
	return bb.b
}

// Words returns the bitstream packed MSB-first into big-endian 32-bit
// words, zero-padded, as PWM serializers consume it.
func (bb *BitBuffer) Words() []uint32 {
	w := make([]uint32, (len(bb.b)+3)/4)
	for i, b := range bb.b {
		w[i/4] |= uint32(b) << uint(24-8*(i%4))
	}
	return w
}

// SlotRate returns the peripheral clock rate in Hz for a chipset's 3-slot
// symbol encoding.
func SlotRate(t chipset.Timing) uint32 {
	return uint32(3000000000 / uint64(t.Period()))
}

// BitRate returns the LED bit rate in Hz (one third of SlotRate).
func BitRate(t chipset.Timing) uint32 {
	return uint32(1000000000 / uint64(t.Period()))
}

// FrameSlots returns the number of slots one frame occupies, including the
// latch tail, for sizing peripheral buffers up front.
func FrameSlots(t chipset.Timing, numPixels, numChannels int) int {
	return numPixels*numChannels*8*3 + LatchSlots(t)
}

// LatchSlots returns the number of low slots needed to hold the line down
// for the chipset's latch time at the slot rate.
func LatchSlots(t chipset.Timing) int {
	period := uint64(t.Period())
	return int((uint64(t.Latch)*3 + period - 1) / period)
}

// RenderFrame drains the iterator into the buffer as 3-slot symbols and
// appends the latch tail. The result is the exact waveform the busy-wait
// engine would produce, expressed as data for a peripheral clocked at
// SlotRate.
func RenderFrame(it *pixel.Iterator, t chipset.Timing, bb *BitBuffer) {
	for it.HasNext() {
		n := it.NumChannels()
		for ch := 0; ch < n; ch++ {
			b := it.LoadAndScale(ch)
			for i := 0; i < 8; i++ {
				sym := SymbolZero
				if b&0x80 != 0 {
					sym = SymbolOne
				}
				for s := 2; s >= 0; s-- {
					bb.AppendBit(sym&(1<<uint(s)) != 0)
				}
				b <<= 1
			}
		}
		it.StepDithering()
		it.Advance()
	}
	for i := LatchSlots(t); i > 0; i-- {
		bb.AppendBit(false)
	}
}

// BitStreamer consumes a rendered frame. Implementations block only long
// enough to hand the buffer to the peripheral; they must not reuse a buffer
// the peripheral is still draining.
type BitStreamer interface {
	StreamBits(bb *BitBuffer) error
}

// StreamConfig binds a buffered output to one chipset timing and color
// layout.
type StreamConfig struct {
	Out    BitStreamer
	Timing chipset.Timing
	Order  int
	White  pixel.WhiteMode
	Dither bool
}

// StreamController is the controller facade for buffered/DMA outputs. The
// inter-frame latch is carried in the rendered tail, so Show never spins.
type StreamController struct {
	out    BitStreamer
	timing chipset.Timing
	order  int
	white  pixel.WhiteMode
	dither *pixel.Ditherer
	bb     BitBuffer
}

func NewStreamController(cfg StreamConfig) (*StreamController, error) {
	if cfg.Out == nil {
		return nil, fmt.Errorf("output is required")
	}
	if err := cfg.Timing.Validate(); err != nil {
		return nil, fmt.Errorf("bad timing: %v", err)
	}
	if _, err := pixel.NewIterator([]byte{0, 0, 0, 0}, 1, cfg.Order, cfg.White, 0, nil); err != nil {
		return nil, fmt.Errorf("bad pixel layout: %v", err)
	}
	c := &StreamController{
		out:    cfg.Out,
		timing: cfg.Timing,
		order:  cfg.Order,
		white:  cfg.White,
	}
	if cfg.Dither {
		c.dither = &pixel.Ditherer{}
	}
	return c, nil
}

func (c *StreamController) stream(it *pixel.Iterator) error {
	c.bb.Reset()
	RenderFrame(it, c.timing, &c.bb)
	return c.out.StreamBits(&c.bb)
}

// Show renders numPixels' worth of the buffer and hands it to the output.
func (c *StreamController) Show(pixels []byte, numPixels int, scale uint8) error {
	it, err := pixel.NewIterator(pixels, numPixels, c.order, c.white, scale, c.dither)
	if err != nil {
		return fmt.Errorf("couldn't build iterator: %v", err)
	}
	return c.stream(it)
}

// ShowColor renders a single repeated color and hands it to the output.
func (c *StreamController) ShowColor(p pixel.Pixel, numPixels int, scale uint8) error {
	it, err := pixel.NewColorIterator(p, numPixels, c.order, c.white, scale, c.dither)
	if err != nil {
		return fmt.Errorf("couldn't build iterator: %v", err)
	}
	return c.stream(it)
}
