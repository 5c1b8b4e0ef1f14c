package media_test

import (
	"testing"

	"examsight/internal/media"
)

func fillFrame(f *media.Frame, r, g, b byte) {
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i] = r
		f.Pix[i+1] = g
		f.Pix[i+2] = b
	}
}

func TestRegionMeans(t *testing.T) {
	f := media.NewFrame(8, 8)
	fillFrame(f, 10, 200, 30)

	r, g, b := f.RegionMeans(2, 2, 4, 4)
	if r != 10 || g != 200 || b != 30 {
		t.Fatalf("uniform frame means = (%v, %v, %v)", r, g, b)
	}
}

func TestRegionMeansClampsToBounds(t *testing.T) {
	f := media.NewFrame(4, 4)
	fillFrame(f, 50, 60, 70)

	// Region hanging off the right/bottom edge still averages what exists.
	r, g, b := f.RegionMeans(2, 2, 10, 10)
	if r != 50 || g != 60 || b != 70 {
		t.Fatalf("clamped means = (%v, %v, %v)", r, g, b)
	}

	// Fully out of range yields zeros rather than panicking.
	if r, g, b := f.RegionMeans(100, 100, 4, 4); r != 0 || g != 0 || b != 0 {
		t.Fatalf("out-of-range means = (%v, %v, %v)", r, g, b)
	}
}

func TestDownsamplePreservesAspect(t *testing.T) {
	f := media.NewFrame(1280, 720)
	fillFrame(f, 1, 2, 3)

	out := media.Downsample(f, 640)
	if out.Width != 640 || out.Height != 360 {
		t.Fatalf("downsampled to %dx%d, want 640x360", out.Width, out.Height)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("downsampled frame invalid: %v", err)
	}
	if out.Pix[0] != 1 || out.Pix[1] != 2 || out.Pix[2] != 3 {
		t.Fatalf("pixel content lost: %v", out.Pix[:3])
	}
}

func TestDownsampleNoopWithinBounds(t *testing.T) {
	f := media.NewFrame(320, 240)
	if got := media.Downsample(f, 640); got != f {
		t.Fatal("frames within bounds should be returned unchanged")
	}
}

func TestValidateCatchesShortBuffer(t *testing.T) {
	f := media.NewFrame(4, 4)
	f.Pix = f.Pix[:10]
	if err := f.Validate(); err == nil {
		t.Fatal("expected error for truncated pixel buffer")
	}
}

func TestPCMWindow(t *testing.T) {
	win := media.PCMWindow{SampleRate: 16000, Data: make([]byte, 64000)}
	if win.Samples() != 32000 {
		t.Fatalf("samples = %d, want 32000", win.Samples())
	}
	if win.Duration() != 2.0 {
		t.Fatalf("duration = %v, want 2.0", win.Duration())
	}
	if got := media.WindowBytes(16000, 2.0); got != 64000 {
		t.Fatalf("WindowBytes = %d, want 64000", got)
	}

	// -32768 must decode to -1.0.
	win.Data[0] = 0x00
	win.Data[1] = 0x80
	if f := win.Float64(); f[0] != -1.0 {
		t.Fatalf("decoded %v, want -1.0", f[0])
	}
}
