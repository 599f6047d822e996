package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/clockless-go/clockless"
	"github.com/clockless-go/clockless/chipset"
	"github.com/clockless-go/clockless/pixarray"
	"github.com/clockless-go/clockless/pixel"
	"github.com/clockless-go/clockless/rpi"
	"github.com/clockless-go/clockless/spistrip"
)

var ledChip = flag.String("ledchip", "ws281x", "The type of LED strip to drive: one of ws281x, ws281x-gpio, lpd8806")
var chipName = flag.String("chipset", "ws2812b", "The clockless chipset timing to use: one of ws2811, ws2812, ws2812b, sk6812, sk6812rgbw, tm1809, ucs1903, ws2811_400k")
var numPixels = flag.Int("pixels", 5*32, "The number of pixels to be controlled")
var pixelOrder = flag.String("order", "GRB", "The color ordering of the pixels")
var whiteFlag = flag.String("white", "none", "RGBW white handling: none, direct or extract")
var brightness = flag.Uint("brightness", 255, "Brightness scale, 0-255")
var dither = flag.Bool("dither", false, "Enable temporal dithering at low brightness")
var ws281xDma = flag.Int("ws281xdma", 10, "The DMA channel to use for sending data to WS281x devices")
var ws281xPin0 = flag.Int("ws281xpin0", 18, "The pin on which channel 0 should be output for WS281x devices")
var ws281xPin1 = flag.Int("ws281xpin1", -1, "The pin on which channel 1 should be output for WS281x devices, -1 to disable")
var lpd8806Dev = flag.String("dev", "/dev/spidev0.0", "The SPI device on which LPD8806 LEDs are connected")
var lpd8806SpiSpeed = flag.Uint("spispeed", 1000000, "The speed to send data via SPI to LPD8806s, in Hz")

func whiteMode() (pixel.WhiteMode, int, error) {
	switch *whiteFlag {
	case "none":
		return pixel.WhiteNone, 3, nil
	case "direct":
		return pixel.WhiteDirect, 4, nil
	case "extract":
		return pixel.WhiteExtractMin, 3, nil
	}
	return pixel.WhiteNone, 0, fmt.Errorf("unknown white mode '%s'", *whiteFlag)
}

func newWS281xStrip(order int) (pixarray.LEDStrip, int, error) {
	t, err := chipset.ByName(*chipName)
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't find chipset: %v", err)
	}
	white, numColors, err := whiteMode()
	if err != nil {
		return nil, 0, err
	}
	rp, err := rpi.NewRPi()
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't init RPi: %v", err)
	}
	log.Printf("Running on %s", rp.Hardware())
	pins := []int{*ws281xPin0}
	if *ws281xPin1 >= 0 {
		pins = append(pins, *ws281xPin1)
	}
	outColors := numColors
	if white == pixel.WhiteExtractMin {
		outColors = 4
	}
	out, err := rpi.NewWS281xOut(rp, t, *numPixels, outColors, *ws281xDma, pins)
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't init WS281x output: %v", err)
	}
	c, err := clockless.NewStreamController(clockless.StreamConfig{
		Out:    out,
		Timing: t,
		Order:  order,
		White:  white,
		Dither: *dither,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't create controller: %v", err)
	}
	s, err := pixarray.NewStreamStrip(c, *numPixels, numColors)
	if err != nil {
		return nil, 0, err
	}
	s.SetBrightness(uint8(*brightness))
	return s, numColors, nil
}

// newWS281xGpioStrip bit-bangs the protocol on a GPIO, clocked by the
// BCM2835 system timer. At 1MHz the timer quantizes sub-microsecond windows
// hard, so this path is only usable with the slower chipsets (ucs1903,
// ws2811_400k); the DMA path is the one to use for the rest.
func newWS281xGpioStrip(order int) (pixarray.LEDStrip, int, error) {
	t, err := chipset.ByName(*chipName)
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't find chipset: %v", err)
	}
	white, numColors, err := whiteMode()
	if err != nil {
		return nil, 0, err
	}
	rp, err := rpi.NewRPi()
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't init RPi: %v", err)
	}
	log.Printf("Running on %s", rp.Hardware())
	pin, err := rp.OutputPin(*ws281xPin0)
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't init pin %d: %v", *ws281xPin0, err)
	}
	clk, err := rp.SystemTimer()
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't init system timer: %v", err)
	}
	c, err := clockless.NewController(clockless.Config{
		Pin:    pin,
		Clock:  clk,
		Timing: t,
		Order:  order,
		White:  white,
		Dither: *dither,
		Mode:   clockless.InterruptTolerant,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't create controller: %v", err)
	}
	s, err := pixarray.NewClocklessStrip(c, *numPixels, numColors)
	if err != nil {
		return nil, 0, err
	}
	s.SetBrightness(uint8(*brightness))
	return s, numColors, nil
}

func newLPD8806Strip(order int) (pixarray.LEDStrip, int, error) {
	f, err := os.OpenFile(*lpd8806Dev, os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't open %s: %v", *lpd8806Dev, err)
	}
	s, err := spistrip.NewLPD8806(f, *numPixels, uint32(*lpd8806SpiSpeed), order)
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't init LPD8806: %v", err)
	}
	return s, 3, nil
}

func main() {
	flag.Parse()

	order, ok := pixel.StringOrders[*pixelOrder]
	if !ok {
		log.Fatalf("Unknown pixel order '%s'", *pixelOrder)
	}

	var (
		strip     pixarray.LEDStrip
		numColors int
		err       error
	)
	switch *ledChip {
	case "ws281x":
		strip, numColors, err = newWS281xStrip(order)
	case "ws281x-gpio":
		strip, numColors, err = newWS281xGpioStrip(order)
	case "lpd8806":
		strip, numColors, err = newLPD8806Strip(order)
	default:
		log.Fatalf("Unknown LED chip type '%s'", *ledChip)
	}
	if err != nil {
		log.Fatalf("Couldn't create %s strip: %v", *ledChip, err)
	}

	pa := pixarray.NewPixArray(*numPixels, numColors, strip)
	max := pa.MaxPerChannel()
	colors := []pixel.Pixel{
		{R: max},
		{G: max},
		{B: max},
		{R: max, G: max, B: max},
		{},
	}
	log.Printf("Driving %d pixels of %d colors", pa.NumPixels(), pa.NumColors())
	for {
		for _, c := range colors {
			pa.SetAll(c)
			if err := pa.Write(); err != nil {
				log.Fatalf("Couldn't write pixels: %v", err)
			}
			time.Sleep(time.Second)
		}
		pa.SetAlternate(1, 2, pixel.Pixel{R: max}, pixel.Pixel{B: max})
		if err := pa.Write(); err != nil {
			log.Fatalf("Couldn't write pixels: %v", err)
		}
		time.Sleep(time.Second)
	}
}
