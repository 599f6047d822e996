package pixel

import (
	"testing"
)

// drain pulls every byte of every pixel, stepping dithering the way the
// transmission engine does.
func drain(t *testing.T, it *Iterator) []byte {
	t.Helper()
	var out []byte
	for it.HasNext() {
		for s := 0; s < it.NumChannels(); s++ {
			out = append(out, it.LoadAndScale(s))
		}
		it.StepDithering()
		it.Advance()
	}
	return out
}

func TestColorOrderPermutation(t *testing.T) {
	src := []byte{10, 20, 30}
	tests := []struct {
		name  string
		order int
		want  []byte
	}{
		{"GRB", GRB, []byte{20, 10, 30}},
		{"RGB", RGB, []byte{10, 20, 30}},
		{"BRG", BRG, []byte{30, 10, 20}},
		{"BGR", BGR, []byte{30, 20, 10}},
		{"GBR", GBR, []byte{20, 30, 10}},
		{"RBG", RBG, []byte{10, 30, 20}},
	}
	for _, test := range tests {
		it, err := NewIterator(src, 1, test.order, WhiteNone, 255, nil)
		if err != nil {
			t.Fatalf("%s: NewIterator: %v", test.name, err)
		}
		got := drain(t, it)
		if len(got) != 3 {
			t.Fatalf("%s: got %d bytes, want 3", test.name, len(got))
		}
		for i := range got {
			if got[i] != test.want[i] {
				t.Errorf("%s: slot %d got: %d, want: %d", test.name, i, got[i], test.want[i])
			}
		}
	}
}

func TestFullScaleIsIdentity(t *testing.T) {
	src := []byte{255, 128, 0}
	it, err := NewIterator(src, 1, GRB, WhiteNone, 255, nil)
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	got := drain(t, it)
	want := []byte{128, 255, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot %d got: %d, want: %d", i, got[i], want[i])
		}
	}
}

func TestZeroInputStaysZero(t *testing.T) {
	src := make([]byte, 30)
	d := &Ditherer{}
	for frame := 0; frame < 50; frame++ {
		it, err := NewIterator(src, 10, GRB, WhiteNone, 255, d)
		if err != nil {
			t.Fatalf("NewIterator: %v", err)
		}
		for _, b := range drain(t, it) {
			if b != 0 {
				t.Fatalf("frame %d: zero input produced %d", frame, b)
			}
		}
	}
}

func TestScalingTruncatesWithoutDither(t *testing.T) {
	tests := []struct {
		raw   byte
		scale uint8
		want  byte
	}{
		{255, 255, 255},
		{255, 127, 127},
		{128, 255, 128},
		{10, 128, 5}, // 10*129>>8
		{1, 127, 0},
		{0, 255, 0},
	}
	for _, test := range tests {
		src := []byte{test.raw, test.raw, test.raw}
		it, err := NewIterator(src, 1, RGB, WhiteNone, test.scale, nil)
		if err != nil {
			t.Fatalf("NewIterator: %v", err)
		}
		if got := it.LoadAndScale(0); got != test.want {
			t.Errorf("raw %d scale %d got: %d, want: %d", test.raw, test.scale, got, test.want)
		}
	}
}

func TestDitheringConservation(t *testing.T) {
	// One pixel at a constant value: over 256 frames the transmitted sum
	// must equal raw*(scale+1) exactly, with the carry never exceeding one
	// quantization unit.
	const raw, scale = 10, 128
	d := &Ditherer{}
	sum := 0
	for frame := 0; frame < 256; frame++ {
		src := []byte{raw, raw, raw}
		it, err := NewIterator(src, 1, RGB, WhiteNone, scale, d)
		if err != nil {
			t.Fatalf("NewIterator: %v", err)
		}
		sum += int(it.LoadAndScale(0))
		it.StepDithering()
		it.Advance()
	}
	if want := raw * (scale + 1); sum != want {
		t.Errorf("256-frame sum got: %d, want: %d", sum, want)
	}
}

func TestDitherCarryBounded(t *testing.T) {
	const raw, scale = 3, 200
	d := &Ditherer{}
	for frame := 0; frame < 1000; frame++ {
		src := []byte{raw, 0, 0}
		it, err := NewIterator(src, 1, RGB, WhiteNone, scale, d)
		if err != nil {
			t.Fatalf("NewIterator: %v", err)
		}
		lo := raw * (scale + 1) >> 8
		got := int(it.LoadAndScale(0)) // slot 0 is R in RGB order
		if got != lo && got != lo+1 {
			t.Fatalf("frame %d: got %d, want %d or %d", frame, got, lo, lo+1)
		}
		it.StepDithering()
		it.Advance()
	}
}

func TestWhiteExtractMin(t *testing.T) {
	src := []byte{100, 60, 80}
	it, err := NewIterator(src, 1, RGB, WhiteExtractMin, 255, nil)
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	if n := it.NumChannels(); n != 4 {
		t.Fatalf("NumChannels got: %d, want: 4", n)
	}
	got := drain(t, it)
	want := []byte{40, 0, 20, 60} // R-min, G-min, B-min, W=min
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot %d got: %d, want: %d", i, got[i], want[i])
		}
	}
}

func TestWhiteDirect(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	it, err := NewIterator(src, 1, GRB, WhiteDirect, 255, nil)
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	got := drain(t, it)
	want := []byte{2, 1, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot %d got: %d, want: %d", i, got[i], want[i])
		}
	}
}

func TestColorIteratorRepeats(t *testing.T) {
	it, err := NewColorIterator(Pixel{R: 7, G: 8, B: 9}, 3, RGB, WhiteNone, 255, nil)
	if err != nil {
		t.Fatalf("NewColorIterator: %v", err)
	}
	got := drain(t, it)
	if len(got) != 9 {
		t.Fatalf("got %d bytes, want 9", len(got))
	}
	for i := 0; i < 9; i += 3 {
		if got[i] != 7 || got[i+1] != 8 || got[i+2] != 9 {
			t.Errorf("pixel %d got: %v, want: [7 8 9]", i/3, got[i:i+3])
		}
	}
}

func TestNewIteratorRejectsShortBuffer(t *testing.T) {
	if _, err := NewIterator(make([]byte, 5), 2, GRB, WhiteNone, 255, nil); err == nil {
		t.Errorf("short buffer: wanted error, got nil")
	}
	if _, err := NewIterator(make([]byte, 6), 2, 99, WhiteNone, 255, nil); err == nil {
		t.Errorf("bad order: wanted error, got nil")
	}
	if _, err := NewIterator(make([]byte, 6), 0, GRB, WhiteNone, 255, nil); err == nil {
		t.Errorf("zero pixels: wanted error, got nil")
	}
}
