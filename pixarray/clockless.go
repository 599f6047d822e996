package pixarray

import (
	"fmt"
	"log"

	"github.com/clockless-go/clockless"
	"github.com/clockless-go/clockless/pixel"
)

// ClocklessStrip is an LEDStrip behind a bit-banged clockless controller.
// The pixel buffer holds logical RGB(W) values; color reordering, brightness
// scaling and dithering all happen during transmission.
type ClocklessStrip struct {
	numPixels  int
	numColors  int
	pixels     []byte
	c          *clockless.Controller
	brightness uint8
}

func NewClocklessStrip(c *clockless.Controller, numPixels, numColors int) (*ClocklessStrip, error) {
	if numColors != 3 && numColors != 4 {
		return nil, fmt.Errorf("want 3 or 4 colors, got %d", numColors)
	}
	return &ClocklessStrip{
		numPixels:  numPixels,
		numColors:  numColors,
		pixels:     make([]byte, numPixels*numColors),
		c:          c,
		brightness: 255,
	}, nil
}

// SetBrightness sets the scale applied during the next Write. 255 is
// identity.
func (s *ClocklessStrip) SetBrightness(b uint8) {
	s.brightness = b
}

func (s *ClocklessStrip) MaxPerChannel() int {
	return 255
}

func (s *ClocklessStrip) GetPixel(i int) pixel.Pixel {
	p := pixel.Pixel{R: int(s.pixels[i*s.numColors]), G: int(s.pixels[i*s.numColors+1]), B: int(s.pixels[i*s.numColors+2]), W: -1}
	if s.numColors == 4 {
		p.W = int(s.pixels[i*s.numColors+3])
	}
	return p
}

func (s *ClocklessStrip) SetPixel(i int, p pixel.Pixel) {
	s.pixels[i*s.numColors] = byte(p.R)
	s.pixels[i*s.numColors+1] = byte(p.G)
	s.pixels[i*s.numColors+2] = byte(p.B)
	if s.numColors == 4 {
		s.pixels[i*s.numColors+3] = byte(p.W)
	}
}

func (s *ClocklessStrip) Write() error {
	st, err := s.c.Show(s.pixels, s.numPixels, s.brightness)
	if err != nil {
		return fmt.Errorf("couldn't show %d pixels: %v", s.numPixels, err)
	}
	if st == clockless.Aborted {
		// The frame was cut short to avoid latching garbage. The next
		// Write repairs the strip, so just note it.
		log.Printf("frame aborted mid-transmission, strip keeps previous frame\n")
	}
	return nil
}

// StreamStrip is an LEDStrip behind a rendered-stream controller (DMA, PWM
// or a stream-capable GPIO driver).
type StreamStrip struct {
	numPixels  int
	numColors  int
	pixels     []byte
	c          *clockless.StreamController
	brightness uint8
}

func NewStreamStrip(c *clockless.StreamController, numPixels, numColors int) (*StreamStrip, error) {
	if numColors != 3 && numColors != 4 {
		return nil, fmt.Errorf("want 3 or 4 colors, got %d", numColors)
	}
	return &StreamStrip{
		numPixels:  numPixels,
		numColors:  numColors,
		pixels:     make([]byte, numPixels*numColors),
		c:          c,
		brightness: 255,
	}, nil
}

func (s *StreamStrip) SetBrightness(b uint8) {
	s.brightness = b
}

func (s *StreamStrip) MaxPerChannel() int {
	return 255
}

func (s *StreamStrip) GetPixel(i int) pixel.Pixel {
	p := pixel.Pixel{R: int(s.pixels[i*s.numColors]), G: int(s.pixels[i*s.numColors+1]), B: int(s.pixels[i*s.numColors+2]), W: -1}
	if s.numColors == 4 {
		p.W = int(s.pixels[i*s.numColors+3])
	}
	return p
}

func (s *StreamStrip) SetPixel(i int, p pixel.Pixel) {
	s.pixels[i*s.numColors] = byte(p.R)
	s.pixels[i*s.numColors+1] = byte(p.G)
	s.pixels[i*s.numColors+2] = byte(p.B)
	if s.numColors == 4 {
		s.pixels[i*s.numColors+3] = byte(p.W)
	}
}

func (s *StreamStrip) Write() error {
	if err := s.c.Show(s.pixels, s.numPixels, s.brightness); err != nil {
		return fmt.Errorf("couldn't show %d pixels: %v", s.numPixels, err)
	}
	return nil
}
