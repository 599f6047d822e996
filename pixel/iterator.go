package pixel

import (
	"fmt"
)

// WhiteMode selects how a dedicated white channel is derived. It is a
// configuration choice, fixed for the lifetime of a controller.
type WhiteMode int

const (
	// WhiteNone transmits three channels from a 3-byte RGB buffer.
	WhiteNone WhiteMode = iota
	// WhiteDirect transmits four channels from a 4-byte RGBW buffer.
	WhiteDirect
	// WhiteExtractMin derives W=min(R,G,B) from a 3-byte RGB buffer and
	// subtracts it from the color channels.
	WhiteExtractMin
)

func (m WhiteMode) srcColors() int {
	if m == WhiteDirect {
		return 4
	}
	return 3
}

func (m WhiteMode) outColors() int {
	if m == WhiteNone {
		return 3
	}
	return 4
}

// Ditherer accumulates the fractional remainder of brightness scaling, per
// logical channel, so that quantization error deferred from one frame is
// paid back in a later one. It persists across frames on the controller.
type Ditherer struct {
	carry [4]uint8
	next  [4]uint8
}

// Reset clears all accumulated error.
func (d *Ditherer) Reset() {
	d.carry = [4]uint8{}
	d.next = [4]uint8{}
}

// Iterator walks a borrowed pixel buffer and produces output-ordered,
// brightness-scaled bytes one wire slot at a time. It never copies the
// buffer; the caller guarantees the buffer stays valid and unmodified for
// the duration of a transmission.
type Iterator struct {
	src       []byte
	srcColors int
	outColors int
	slots     [4]int
	white     WhiteMode
	scale     uint8
	dither    *Ditherer
	remaining int
	pos       int
	repeat    bool
	cur       [4]uint8
	loaded    bool
}

// NewIterator returns an iterator over numPixels pixels stored in src as
// contiguous RGB (or RGBW, for WhiteDirect) tuples. dither may be nil to
// disable temporal dithering.
func NewIterator(src []byte, numPixels int, order int, white WhiteMode, scale uint8, dither *Ditherer) (*Iterator, error) {
	slots, err := slotChannels(order)
	if err != nil {
		return nil, err
	}
	if numPixels <= 0 {
		return nil, fmt.Errorf("need at least one pixel, got %d", numPixels)
	}
	sc := white.srcColors()
	if len(src) < numPixels*sc {
		return nil, fmt.Errorf("buffer holds %d bytes, need %d for %d pixels of %d channels", len(src), numPixels*sc, numPixels, sc)
	}
	return &Iterator{
		src:       src,
		srcColors: sc,
		outColors: white.outColors(),
		slots:     slots,
		white:     white,
		scale:     scale,
		dither:    dither,
		remaining: numPixels,
	}, nil
}

// NewColorIterator returns an iterator that repeats a single color numPixels
// times without requiring a backing buffer.
func NewColorIterator(p Pixel, numPixels int, order int, white WhiteMode, scale uint8, dither *Ditherer) (*Iterator, error) {
	src := []byte{byte(p.R), byte(p.G), byte(p.B)}
	if white == WhiteDirect {
		src = append(src, byte(p.W))
	}
	it, err := NewIterator(src, 1, order, white, scale, dither)
	if err != nil {
		return nil, err
	}
	it.remaining = numPixels
	it.repeat = true
	return it, nil
}

// NumChannels returns the number of wire slots per pixel.
func (it *Iterator) NumChannels() int {
	return it.outColors
}

// HasNext reports whether unread pixels remain.
func (it *Iterator) HasNext() bool {
	return it.remaining > 0
}

func (it *Iterator) loadPixel() {
	r := it.src[it.pos]
	g := it.src[it.pos+1]
	b := it.src[it.pos+2]
	w := uint8(0)
	switch it.white {
	case WhiteDirect:
		w = it.src[it.pos+3]
	case WhiteExtractMin:
		w = r
		if g < w {
			w = g
		}
		if b < w {
			w = b
		}
		r -= w
		g -= w
		b -= w
	}
	it.cur = [4]uint8{r, g, b, w}
	it.loaded = true
}

// LoadAndScale returns the byte for the given wire slot of the current
// pixel, after color-order permutation and brightness scaling.
//
// The scale maps 255 to the identity: scaled = (raw*(scale+1)+carry)>>8,
// with carry the dither remainder held over from the previous frame for
// that channel (zero when dithering is off).
func (it *Iterator) LoadAndScale(slot int) byte {
	if !it.loaded {
		it.loadPixel()
	}
	ch := it.slots[slot]
	raw := it.cur[ch]
	m := uint16(raw) * (uint16(it.scale) + 1)
	if it.dither == nil {
		return byte(m >> 8)
	}
	v := m + uint16(it.dither.carry[ch])
	it.dither.next[ch] = uint8(v)
	return byte(v >> 8)
}

// StepDithering commits the current pixel's scaling remainders. Called once
// per pixel, after all of its channels have been consumed.
func (it *Iterator) StepDithering() {
	if it.dither != nil {
		it.dither.carry = it.dither.next
	}
}

// Advance moves to the next pixel.
func (it *Iterator) Advance() {
	if !it.repeat {
		it.pos += it.srcColors
	}
	it.remaining--
	it.loaded = false
}
