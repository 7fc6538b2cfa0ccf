package dnn

import (
	"testing"

	"gocv.io/x/gocv"
)

// TestInputNHWC verifies a BGR frame becomes a 1xSxSx3 RGB tensor scaled to [0,1].
func TestInputNHWC(t *testing.T) {
	d := &Detector{cfg: Config{InputSize: 8, InputLayout: LayoutNHWC}}

	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 51, 0), 4, 6, gocv.MatTypeCV8UC3)
	defer src.Close()

	blob, err := d.input(src)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 8*8*3 {
		t.Fatalf("tensor has %d values, want %d", len(data), 8*8*3)
	}
	// BGR (255, 0, 51) is RGB (0.2, 0, 1).
	const eps = 1e-6
	if r, g, b := data[0], data[1], data[2]; abs(r-0.2) > eps || g != 0 || abs(b-1) > eps {
		t.Errorf("first pixel = (%v, %v, %v), want (0.2, 0, 1)", r, g, b)
	}
}

// TestInputRejectsGrayscale verifies a colour conversion failure surfaces as
// an error instead of feeding the model garbage.
func TestInputRejectsGrayscale(t *testing.T) {
	d := &Detector{cfg: Config{InputSize: 8, InputLayout: LayoutNHWC}}

	src := gocv.NewMatWithSize(4, 6, gocv.MatTypeCV8UC1)
	defer src.Close()

	if blob, err := d.input(src); err == nil {
		blob.Close()
		t.Fatal("expected error converting a single-channel frame")
	}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
