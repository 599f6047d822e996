// Package periphout adapts periph.io GPIO pins to the clockless interfaces,
// for hosts where memory-mapped register access isn't available or wanted.
package periphout

import (
	"fmt"
	"log"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpiostream"
	"periph.io/x/periph/conn/physic"

	"github.com/clockless-go/clockless"
	"github.com/clockless-go/clockless/chipset"
)

// Pin drives a periph.io GPIO as a bit-bang output. The pin interface has no
// error path, so failures are logged and the pin left as-is; on hardware
// where Out can fail mid-frame the stream output below is the better choice
// anyway.
type Pin struct {
	p gpio.PinIO
}

func NewPin(p gpio.PinIO) (*Pin, error) {
	if p == nil {
		return nil, fmt.Errorf("nil pin")
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("couldn't set %s as output: %v", p.Name(), err)
	}
	return &Pin{p: p}, nil
}

func (p *Pin) SetOutput() {
	if err := p.p.Out(gpio.Low); err != nil {
		log.Printf("couldn't set %s as output: %v\n", p.p.Name(), err)
	}
}

func (p *Pin) Hi() {
	p.p.Out(gpio.High) // Ignore error
}

func (p *Pin) Lo() {
	p.p.Out(gpio.Low) // Ignore error
}

// Streamer pushes rendered bit streams through a periph.io stream-capable
// pin. The driver underneath handles the pacing, so this works on hosts that
// can't bit-bang to protocol tolerances.
type Streamer struct {
	p    gpiostream.PinOut
	freq physic.Frequency
}

func NewStreamer(p gpiostream.PinOut, t chipset.Timing) (*Streamer, error) {
	if p == nil {
		return nil, fmt.Errorf("nil pin")
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("bad timing: %v", err)
	}
	return &Streamer{
		p:    p,
		freq: physic.Frequency(clockless.SlotRate(t)) * physic.Hertz,
	}, nil
}

func (s *Streamer) StreamBits(bb *clockless.BitBuffer) error {
	err := s.p.StreamOut(&gpiostream.BitStream{
		Bits: bb.Bytes(),
		Freq: s.freq,
		LSBF: false,
	})
	if err != nil {
		return fmt.Errorf("couldn't stream %d bits: %v", bb.Len(), err)
	}
	return nil
}
