// Package media holds the raw frame and PCM sample types exchanged
// between the decode pipes, the analysis sinks, and the PPG detector.
package media

import (
	"fmt"
	"time"
)

// Frame is a raw RGB24 video frame. Pix holds Width*Height*3 bytes in
// row-major order, channel-interleaved (R, G, B).
type Frame struct {
	Width      int
	Height     int
	Pix        []byte
	CapturedAt time.Time
}

// NewFrame allocates a zeroed frame of the given dimensions.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// Validate reports whether the pixel buffer matches the declared size.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("nil frame")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame dimensions %dx%d invalid", f.Width, f.Height)
	}
	if want := f.Width * f.Height * 3; len(f.Pix) != want {
		return fmt.Errorf("pixel buffer %d bytes, want %d", len(f.Pix), want)
	}
	return nil
}

// at returns the byte offset of pixel (x, y).
func (f *Frame) at(x, y int) int {
	return (y*f.Width + x) * 3
}

// RegionMeans computes the per-channel spatial means over the given
// sub-rectangle, clamped to the frame bounds. A region that clamps to
// nothing yields zeros.
func (f *Frame) RegionMeans(x, y, w, h int) (r, g, b float64) {
	if f.Validate() != nil {
		return 0, 0, 0
	}
	x = clamp(x, 0, f.Width-1)
	y = clamp(y, 0, f.Height-1)
	if x+w > f.Width {
		w = f.Width - x
	}
	if y+h > f.Height {
		h = f.Height - y
	}
	if w <= 0 || h <= 0 {
		return 0, 0, 0
	}

	var sumR, sumG, sumB uint64
	for row := y; row < y+h; row++ {
		off := f.at(x, row)
		for col := 0; col < w; col++ {
			sumR += uint64(f.Pix[off])
			sumG += uint64(f.Pix[off+1])
			sumB += uint64(f.Pix[off+2])
			off += 3
		}
	}
	n := float64(w * h)
	return float64(sumR) / n, float64(sumG) / n, float64(sumB) / n
}

// CenterRegion returns the centered half-frame rectangle used as the
// default PPG region of interest when no face detector supplies one.
func (f *Frame) CenterRegion() (x, y, w, h int) {
	return f.Width / 4, f.Height / 4, f.Width / 2, f.Height / 2
}

// Downsample returns a frame no wider than maxWidth, preserving aspect
// ratio via nearest-neighbor sampling. Frames already within bounds are
// returned unchanged.
func Downsample(f *Frame, maxWidth int) *Frame {
	if f == nil || maxWidth <= 0 || f.Width <= maxWidth {
		return f
	}
	scale := float64(maxWidth) / float64(f.Width)
	outW := maxWidth
	outH := int(float64(f.Height) * scale)
	if outH < 1 {
		outH = 1
	}

	out := NewFrame(outW, outH)
	out.CapturedAt = f.CapturedAt
	for y := 0; y < outH; y++ {
		srcY := int(float64(y) / scale)
		if srcY >= f.Height {
			srcY = f.Height - 1
		}
		for x := 0; x < outW; x++ {
			srcX := int(float64(x) / scale)
			if srcX >= f.Width {
				srcX = f.Width - 1
			}
			src := f.at(srcX, srcY)
			dst := out.at(x, y)
			copy(out.Pix[dst:dst+3], f.Pix[src:src+3])
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
