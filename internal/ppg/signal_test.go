package ppg

import (
	"math"
	"testing"
)

func sinusoid(n int, freqHz, sampleRate float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freqHz * float64(i) / sampleRate)
	}
	return out
}

func TestAssessQuality(t *testing.T) {
	if q := assessQuality([]float64{1, 2}); q != 0 {
		t.Fatalf("quality of 2 samples = %v, want 0", q)
	}
	flat := make([]float64, 50)
	for i := range flat {
		flat[i] = 128
	}
	if q := assessQuality(flat); q != 0.1 {
		t.Fatalf("quality of flat signal = %v, want 0.1", q)
	}

	pulse := sinusoid(100, 1.25, 30)
	for i := range pulse {
		pulse[i] = 128 + 40*pulse[i]
	}
	if q := assessQuality(pulse); q < 0.5 {
		t.Fatalf("quality of clean pulse = %v, want >= 0.5", q)
	}
}

func TestDetrendRemovesLinearTrend(t *testing.T) {
	sig := make([]float64, 60)
	for i := range sig {
		sig[i] = 2*float64(i) + 5
	}
	for i, v := range detrend(sig) {
		if math.Abs(v) > 1e-9 {
			t.Fatalf("detrended[%d] = %v, want ~0", i, v)
		}
	}
}

func TestFFTEstimateFindsDominantFrequency(t *testing.T) {
	// 1.0 Hz lands exactly on a bin for n=90 at 30 Hz.
	sig := sinusoid(90, 1.0, 30)
	bpm, ok := fftEstimate(sig, 30, 40, 120)
	if !ok {
		t.Fatal("no FFT estimate for a pure sinusoid")
	}
	if math.Abs(bpm-60) > 1 {
		t.Fatalf("bpm = %v, want 60", bpm)
	}
}

func TestFFTEstimateRejectsFlatSignal(t *testing.T) {
	if bpm, ok := fftEstimate(make([]float64, 100), 30, 40, 120); ok {
		t.Fatalf("flat signal produced FFT estimate %v", bpm)
	}
}

func TestAutocorrelationEstimate(t *testing.T) {
	// Period of 24 samples at 30 Hz is exactly 75 BPM.
	sig := sinusoid(100, 1.25, 30)
	bpm, ok := autocorrelationEstimate(sig, 30, 40, 120)
	if !ok {
		t.Fatal("no autocorrelation estimate for a pure sinusoid")
	}
	if math.Abs(bpm-75) > 3 {
		t.Fatalf("bpm = %v, want ~75", bpm)
	}
}

func TestAutocorrelationEstimateTooShort(t *testing.T) {
	if _, ok := autocorrelationEstimate([]float64{1, 2, 3}, 30, 40, 120); ok {
		t.Fatal("estimate from 3 samples")
	}
}

func TestStatisticalEstimate(t *testing.T) {
	if _, ok := statisticalEstimate(make([]float64, 50), 40, 120); ok {
		t.Fatal("estimate from a flat signal")
	}

	sig := sinusoid(50, 1.25, 30)
	for i := range sig {
		sig[i] = 128 + 20*sig[i]
	}
	bpm, ok := statisticalEstimate(sig, 40, 120)
	if !ok {
		t.Fatal("no statistical estimate for a varying signal")
	}
	if bpm < 40 || bpm > 120 {
		t.Fatalf("bpm = %v, outside configured bounds", bpm)
	}
}

func TestSmoothClampsLargeJump(t *testing.T) {
	d := New(Options{})
	prev := 70.0
	d.current = &prev

	got := d.smooth(95)
	// 10% of 70 caps the step at 7, so the estimate may not exceed 77.
	if got > 77.0001 {
		t.Fatalf("smoothed = %v, want <= 77", got)
	}
	if got < 70 {
		t.Fatalf("smoothed = %v moved away from the raw value", got)
	}
}

func TestSmoothWeightsRecentHistory(t *testing.T) {
	d := New(Options{})
	d.history = []float64{70, 72}

	got := d.smooth(74)
	want := 0.2*70 + 0.3*72 + 0.5*74
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("smoothed = %v, want %v", got, want)
	}
}
