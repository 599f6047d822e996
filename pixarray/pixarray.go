// Package pixarray keeps a mutable array of pixels and pushes it to an LED
// strip, whatever the transport underneath.
package pixarray

import (
	"github.com/clockless-go/clockless/pixel"
)

// LEDStrip is a strip of pixels behind some transport. Write pushes the
// current pixel state out; it blocks until the strip has the data (or, for
// DMA transports, until the transfer is started).
type LEDStrip interface {
	MaxPerChannel() int
	GetPixel(i int) pixel.Pixel
	SetPixel(i int, p pixel.Pixel)
	Write() error
}

func abs(i int) int {
	if i >= 0 {
		return i
	}
	return -i
}

type PixArray struct {
	numPixels int
	numColors int
	leds      LEDStrip
}

func NewPixArray(numPixels int, numColors int, leds LEDStrip) *PixArray {
	return &PixArray{numPixels, numColors, leds}
}

func (pa *PixArray) NumPixels() int {
	return pa.numPixels
}

func (pa *PixArray) NumColors() int {
	return pa.numColors
}

func (pa *PixArray) MaxPerChannel() int {
	return pa.leds.MaxPerChannel()
}

func (pa *PixArray) Write() error {
	return pa.leds.Write()
}

func (pa *PixArray) GetPixels() []pixel.Pixel {
	p := make([]pixel.Pixel, pa.numPixels)
	for i := 0; i < pa.numPixels; i++ {
		p[i] = pa.leds.GetPixel(i)
	}
	return p
}

func (pa *PixArray) GetPixel(i int) pixel.Pixel {
	return pa.leds.GetPixel(i)
}

// SetAlternate spreads num p2 pixels per div pixels evenly across the array,
// filling the rest with p1. Bresenham-style error accumulation keeps the runs
// as short as possible.
func (pa *PixArray) SetAlternate(num int, div int, p1 pixel.Pixel, p2 pixel.Pixel) {
	totSet := 0
	shouldSet := 0
	for i := 0; i < pa.numPixels; i++ {
		shouldSet += num
		e1 := abs((totSet + div) - shouldSet)
		e2 := abs(totSet - shouldSet)
		if e1 < e2 {
			totSet += div
			pa.leds.SetPixel(i, p2)
		} else {
			pa.leds.SetPixel(i, p1)
		}
	}
}

// SetPerChanAlternate is SetAlternate with an independent num per channel.
func (pa *PixArray) SetPerChanAlternate(num pixel.Pixel, div int, p1 pixel.Pixel, p2 pixel.Pixel) {
	totSet := pixel.Pixel{}
	shouldSet := pixel.Pixel{}
	p := pixel.Pixel{}
	for i := 0; i < pa.numPixels; i++ {
		shouldSet.R += num.R
		e1 := abs((totSet.R + div) - shouldSet.R)
		e2 := abs(totSet.R - shouldSet.R)
		if e1 < e2 {
			totSet.R += div
			p.R = p2.R
		} else {
			p.R = p1.R
		}
		shouldSet.G += num.G
		e1 = abs((totSet.G + div) - shouldSet.G)
		e2 = abs(totSet.G - shouldSet.G)
		if e1 < e2 {
			totSet.G += div
			p.G = p2.G
		} else {
			p.G = p1.G
		}
		shouldSet.B += num.B
		e1 = abs((totSet.B + div) - shouldSet.B)
		e2 = abs(totSet.B - shouldSet.B)
		if e1 < e2 {
			totSet.B += div
			p.B = p2.B
		} else {
			p.B = p1.B
		}
		if pa.numColors == 4 {
			shouldSet.W += num.W
			e1 = abs((totSet.W + div) - shouldSet.W)
			e2 = abs(totSet.W - shouldSet.W)
			if e1 < e2 {
				totSet.W += div
				p.W = p2.W
			} else {
				p.W = p1.W
			}
		}
		pa.leds.SetPixel(i, p)
	}
}

func (pa *PixArray) SetAll(p pixel.Pixel) {
	for i := 0; i < pa.numPixels; i++ {
		pa.leds.SetPixel(i, p)
	}
}

func (pa *PixArray) SetOne(i int, p pixel.Pixel) {
	pa.leds.SetPixel(i, p)
}
