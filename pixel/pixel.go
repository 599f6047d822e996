// Package pixel models pixel colors, wire color orders and the iterator
// that turns a pixel buffer into the brightness-scaled byte stream a strip
// expects.
package pixel

import (
	"fmt"
)

// Wire color orders. The buffer itself is always logical RGB(W); the order
// only describes the sequence the chipset wants on the wire.
const (
	GRB = iota
	BRG
	BGR
	GBR
	RGB
	RBG
)

var StringOrders map[string]int = map[string]int{
	"GRB": GRB,
	"BRG": BRG,
	"BGR": BGR,
	"GBR": GBR,
	"RGB": RGB,
	"RBG": RBG,
}

// offsets maps an order to the wire position of G, R and B respectively.
// A white channel, when present, is always the last wire slot.
var offsets map[int][]int = map[int][]int{
	GRB: {0, 1, 2},
	BRG: {2, 1, 0},
	BGR: {1, 2, 0},
	GBR: {0, 2, 1},
	RGB: {1, 0, 2},
	RBG: {2, 0, 1},
}

// Logical channel indices, shared by the iterator and the dither carries.
const (
	chanR = iota
	chanG
	chanB
	chanW
)

// slotChannels returns, for each wire slot, the logical channel transmitted
// in that slot.
func slotChannels(order int) ([4]int, error) {
	o, ok := offsets[order]
	if !ok {
		return [4]int{}, fmt.Errorf("unknown color order %d", order)
	}
	var s [4]int
	s[o[0]] = chanG
	s[o[1]] = chanR
	s[o[2]] = chanB
	s[3] = chanW
	return s, nil
}

// WireOffsets returns the wire positions of the G, R and B channels for the
// given order. SPI-style strips that build their own wire buffers use this;
// the bit-stream path goes through the iterator instead.
func WireOffsets(order int) (g, r, b int, err error) {
	o, ok := offsets[order]
	if !ok {
		return 0, 0, 0, fmt.Errorf("unknown color order %d", order)
	}
	return o[0], o[1], o[2], nil
}

type Pixel struct {
	R int
	G int
	B int
	W int
}

func (p *Pixel) String() string {
	if p.W != -1 {
		return fmt.Sprintf("%02x%02x%02x%02x", p.R, p.G, p.B, p.W)
	}
	return fmt.Sprintf("%02x%02x%02x", p.R, p.G, p.B)
}
