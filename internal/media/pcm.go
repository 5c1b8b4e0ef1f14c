package media

import "encoding/binary"

// PCMWindow is a fixed-duration slice of mono s16le audio.
type PCMWindow struct {
	SampleRate int
	Data       []byte
}

// Samples returns the number of whole samples in the window.
func (w PCMWindow) Samples() int {
	return len(w.Data) / 2
}

// Duration returns the window length in seconds.
func (w PCMWindow) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(w.Samples()) / float64(w.SampleRate)
}

// Float64 decodes the s16le payload into [-1, 1) floats.
func (w PCMWindow) Float64() []float64 {
	n := w.Samples()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(w.Data[i*2:]))
		out[i] = float64(v) / 32768.0
	}
	return out
}

// WindowBytes returns the byte length of a PCM window of the given
// duration at the given mono s16le sample rate.
func WindowBytes(sampleRate int, seconds float64) int {
	if sampleRate <= 0 || seconds <= 0 {
		return 0
	}
	return int(float64(sampleRate)*seconds) * 2
}
