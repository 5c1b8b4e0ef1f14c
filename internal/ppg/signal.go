package ppg

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// assessQuality scores the buffered signal in [0, 1] from variance,
// continuity, and short-lag periodicity. Flat or wildly discontinuous
// buffers score too low to be worth analyzing.
func assessQuality(signal []float64) float64 {
	if len(signal) < 3 {
		return 0
	}

	std := stddev(signal)
	if std < 1.0 {
		return 0.1
	}

	var maxJump float64
	for i := 1; i < len(signal); i++ {
		if jump := math.Abs(signal[i] - signal[i-1]); jump > maxJump {
			maxJump = jump
		}
	}
	continuity := 1.0 - math.Min(1.0, maxJump/50.0)

	var periodicity float64
	if len(signal) >= 5 {
		centered := detrendMean(signal)
		ac := autocorrelate(centered)
		if ac[0] > 0 {
			for lag := 1; lag <= 3 && lag < len(ac); lag++ {
				if p := ac[lag] / ac[0]; p > periodicity {
					periodicity = p
				}
			}
		}
	}

	quality := std/20.0*0.4 + continuity*0.4 + periodicity*0.2
	return math.Max(0, math.Min(1, quality))
}

// detrend removes the mean and a least-squares linear trend.
func detrend(signal []float64) []float64 {
	centered := detrendMean(signal)
	n := len(centered)
	if n < 2 {
		return centered
	}

	// Least-squares slope/intercept over x = 0..n-1.
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range centered {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return centered
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	out := make([]float64, n)
	for i, y := range centered {
		out[i] = y - (slope*float64(i) + intercept)
	}
	return out
}

func detrendMean(signal []float64) []float64 {
	m := mean(signal)
	out := make([]float64, len(signal))
	for i, v := range signal {
		out[i] = v - m
	}
	return out
}

// bandpass restricts the signal to [lowHz, highHz] with a single-pole
// high-pass followed by a single-pole low-pass. Crude next to a proper
// Butterworth, but stable at any buffer length.
func bandpass(signal []float64, lowHz, highHz, sampleRate float64) []float64 {
	if len(signal) == 0 || sampleRate <= 0 {
		return signal
	}
	nyquist := sampleRate / 2
	return lowPass(highPass(signal, lowHz/nyquist), highHz/nyquist)
}

func highPass(signal []float64, cutoffNorm float64) []float64 {
	alpha := cutoffNorm / (cutoffNorm + 1)
	out := make([]float64, len(signal))
	out[0] = signal[0]
	for i := 1; i < len(signal); i++ {
		out[i] = alpha * (out[i-1] + signal[i] - signal[i-1])
	}
	return out
}

func lowPass(signal []float64, cutoffNorm float64) []float64 {
	alpha := cutoffNorm / (cutoffNorm + 1)
	out := make([]float64, len(signal))
	out[0] = signal[0]
	for i := 1; i < len(signal); i++ {
		out[i] = alpha*signal[i] + (1-alpha)*out[i-1]
	}
	return out
}

// fftEstimate picks the strongest in-band frequency bin. The peak must
// stand at twice the mean in-band magnitude or the spectrum is treated as
// inconclusive.
func fftEstimate(signal []float64, sampleRate float64, minBPM, maxBPM int) (float64, bool) {
	n := len(signal)
	if n < 4 || sampleRate <= 0 {
		return 0, false
	}

	windowed := make([]float64, n)
	for i, v := range signal {
		// Hann window to limit spectral leakage.
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = v * w
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, windowed)

	var (
		peakMag float64
		peakBPM float64
		sumMag  float64
		bins    int
	)
	for i, c := range coeffs {
		bpm := fft.Freq(i) * sampleRate * 60
		if bpm < float64(minBPM) || bpm > float64(maxBPM) {
			continue
		}
		mag := cmplx.Abs(c)
		sumMag += mag
		bins++
		if mag > peakMag {
			peakMag = mag
			peakBPM = bpm
		}
	}
	if bins == 0 {
		return 0, false
	}
	if peakMag > 2*(sumMag/float64(bins)) {
		return peakBPM, true
	}
	return 0, false
}

// autocorrelationEstimate locates the first significant peak within the
// lag range implied by the heart-rate bounds and converts it to BPM.
func autocorrelationEstimate(signal []float64, sampleRate float64, minBPM, maxBPM int) (float64, bool) {
	n := len(signal)
	if n < 4 || sampleRate <= 0 {
		return 0, false
	}

	minLag := int(sampleRate * 60 / float64(maxBPM))
	maxLag := int(sampleRate * 60 / float64(minBPM))
	if maxLag >= n {
		maxLag = n - 1
	}
	if minLag < 1 || minLag >= maxLag {
		return 0, false
	}

	ac := autocorrelate(signal)
	peakLag := minLag
	for lag := minLag; lag <= maxLag; lag++ {
		if ac[lag] > ac[peakLag] {
			peakLag = lag
		}
	}

	bpm := sampleRate * 60 / float64(peakLag)
	if bpm < float64(minBPM) || bpm > float64(maxBPM) {
		return 0, false
	}
	return bpm, true
}

// statisticalEstimate is the last resort when no real periodicity was
// found: a heuristic blend of amplitude, zero-crossing, and derivative
// statistics. Callers tag these results so consumers can discount them.
func statisticalEstimate(signal []float64, minBPM, maxBPM int) (float64, bool) {
	if len(signal) < 5 {
		return 0, false
	}

	centered := detrendMean(signal)
	std := stddev(centered)

	var min, max float64 = centered[0], centered[0]
	for _, v := range centered {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	signalRange := max - min

	if std <= 1.0 || signalRange <= 2.0 {
		// Too flat to carry any pulse information.
		return 0, false
	}

	amplitudeBPM := 60 + math.Min(signalRange, 50)/50.0*40

	crossings := 0
	for i := 1; i < len(centered); i++ {
		if (centered[i-1] < 0) != (centered[i] < 0) {
			crossings++
		}
	}
	crossingBPM := amplitudeBPM
	if crossings > 4 {
		crossingBPM = math.Min(float64(crossings)*2, 150)
	}

	diffs := make([]float64, len(centered)-1)
	for i := 1; i < len(centered); i++ {
		diffs[i-1] = centered[i] - centered[i-1]
	}
	diffBPM := 65 + math.Min(stddev(diffs), 10)/10.0*30

	estimate := (amplitudeBPM + crossingBPM + diffBPM) / 3
	return clampRate(estimate, minBPM, maxBPM), true
}

func autocorrelate(signal []float64) []float64 {
	n := len(signal)
	out := make([]float64, n)
	for lag := 0; lag < n; lag++ {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += signal[i] * signal[i+lag]
		}
		out[lag] = sum
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
