package ppg

import (
	"fmt"
	"math"
	"time"

	"examsight/internal/media"
)

// State describes where the detector is in its measurement cycle.
type State int

const (
	// StateWaiting means no face is present and nothing is measured.
	StateWaiting State = iota
	// StateCounting means a face appeared and the calibration countdown
	// is running while samples accumulate.
	StateCounting
	// StateCalculating means estimates are produced at the update interval.
	StateCalculating
)

func (s State) String() string {
	switch s {
	case StateCounting:
		return "counting"
	case StateCalculating:
		return "calculating"
	default:
		return "waiting"
	}
}

// Estimation methods reported in Reading.Method. Statistical results come
// from amplitude/zero-crossing heuristics rather than detected
// periodicity; consumers may want to discount them.
const (
	MethodFFT             = "fft"
	MethodAutocorrelation = "autocorrelation"
	MethodStatistical     = "statistical"
)

// Options tunes a Detector. Zero values are replaced by defaults.
type Options struct {
	Countdown      time.Duration
	UpdateInterval time.Duration
	MinHeartRate   int
	MaxHeartRate   int
	// SampleRate is the assumed PPG sampling rate in Hz, normally the
	// native video capture rate.
	SampleRate float64

	BufferSize       int
	HistorySize      int
	MinSamples       int
	QualityThreshold float64

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// DefaultOptions returns the standard tuning: 3 s countdown, 1 s updates,
// 40-120 BPM, 30 Hz sampling, 100-sample buffer.
func DefaultOptions() Options {
	return Options{
		Countdown:        3 * time.Second,
		UpdateInterval:   time.Second,
		MinHeartRate:     40,
		MaxHeartRate:     120,
		SampleRate:       30,
		BufferSize:       100,
		HistorySize:      10,
		MinSamples:       10,
		QualityThreshold: 0.3,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Countdown <= 0 {
		o.Countdown = def.Countdown
	}
	if o.UpdateInterval <= 0 {
		o.UpdateInterval = def.UpdateInterval
	}
	if o.MinHeartRate <= 0 {
		o.MinHeartRate = def.MinHeartRate
	}
	if o.MaxHeartRate <= o.MinHeartRate {
		o.MaxHeartRate = def.MaxHeartRate
	}
	if o.SampleRate <= 0 {
		o.SampleRate = def.SampleRate
	}
	if o.BufferSize <= 0 {
		o.BufferSize = def.BufferSize
	}
	if o.HistorySize <= 0 {
		o.HistorySize = def.HistorySize
	}
	if o.MinSamples <= 0 {
		o.MinSamples = def.MinSamples
	}
	if o.QualityThreshold <= 0 {
		o.QualityThreshold = def.QualityThreshold
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Progress reports countdown completion while calibrating.
type Progress struct {
	CountdownActive  bool    `json:"countdown_active"`
	RemainingSeconds int     `json:"remaining_seconds"`
	ProgressPercent  float64 `json:"progress_percent"`
	Message          string  `json:"message"`
}

// Reading is the per-frame detector output.
type Reading struct {
	HeartRate    *int     `json:"heart_rate"`
	FaceDetected bool     `json:"face_detected"`
	State        string   `json:"detection_state"`
	SignalLength int      `json:"signal_length"`
	Progress     Progress `json:"progress_info"`
	// Method names the algorithm behind the current estimate; empty
	// while no estimate exists.
	Method string `json:"method,omitempty"`
}

// Detector turns per-frame brightness samples into heart-rate estimates.
// One instance per stream, invoked serially.
type Detector struct {
	opts Options

	state          State
	countdownStart time.Time
	lastUpdate     time.Time

	samples    []float64
	sampleTime []time.Time

	current *float64
	method  string
	history []float64
}

// New constructs a Detector with the given options.
func New(opts Options) *Detector {
	return &Detector{opts: opts.withDefaults()}
}

// ProcessFrame advances the state machine with one decoded frame and the
// face-presence flag from the upstream detector. It never fails: an
// inconclusive computation simply leaves the heart rate null.
func (d *Detector) ProcessFrame(frame *media.Frame, faceDetected bool) Reading {
	now := d.opts.Clock()

	if !faceDetected {
		// Face loss invalidates the whole signal, not just the state.
		d.clear()
		return d.reading(false, now)
	}

	switch d.state {
	case StateWaiting:
		d.state = StateCounting
		d.countdownStart = now
	case StateCounting:
		if now.Sub(d.countdownStart) >= d.opts.Countdown {
			d.state = StateCalculating
			// Backdate so the first estimate is computed on this frame
			// instead of one full interval later.
			d.lastUpdate = now.Add(-d.opts.UpdateInterval)
		}
	}

	if frame != nil && frame.Validate() == nil {
		d.appendSample(extractSignal(frame), now)
	}

	if d.state == StateCalculating && now.Sub(d.lastUpdate) >= d.opts.UpdateInterval {
		if raw, method, ok := d.compute(); ok {
			smoothed := d.smooth(raw)
			d.current = &smoothed
			d.method = method
		}
		d.lastUpdate = now
	}

	return d.reading(true, now)
}

// Reset clears all state back to Waiting. Invoked at session end.
func (d *Detector) Reset() {
	d.clear()
}

// State returns the current detection state.
func (d *Detector) State() State {
	return d.state
}

func (d *Detector) clear() {
	d.state = StateWaiting
	d.countdownStart = time.Time{}
	d.lastUpdate = time.Time{}
	d.samples = d.samples[:0]
	d.sampleTime = d.sampleTime[:0]
	d.current = nil
	d.method = ""
	d.history = d.history[:0]
}

func (d *Detector) appendSample(value float64, now time.Time) {
	d.samples = append(d.samples, value)
	d.sampleTime = append(d.sampleTime, now)
	if excess := len(d.samples) - d.opts.BufferSize; excess > 0 {
		d.samples = d.samples[excess:]
		d.sampleTime = d.sampleTime[excess:]
	}
}

// extractSignal computes the per-frame PPG scalar: a weighted channel
// combination dominated by green, which is the most sensitive to
// blood-volume change, sampled over the default centered region.
func extractSignal(frame *media.Frame) float64 {
	x, y, w, h := frame.CenterRegion()
	r, g, b := frame.RegionMeans(x, y, w, h)
	value := g - 0.5*r - 0.2*b
	if value < 0 {
		return 0
	}
	if value > 255 {
		return 255
	}
	return value
}

// compute runs the estimation chain over the buffered signal. ok is false
// when no method produced a plausible rate.
func (d *Detector) compute() (bpm float64, method string, ok bool) {
	if len(d.samples) < d.opts.MinSamples {
		return 0, "", false
	}
	if assessQuality(d.samples) < d.opts.QualityThreshold {
		return 0, "", false
	}

	detrended := detrend(d.samples)
	filtered := bandpass(detrended, 0.7, 4.5, d.opts.SampleRate)

	if bpm, ok := fftEstimate(filtered, d.opts.SampleRate, d.opts.MinHeartRate, d.opts.MaxHeartRate); ok {
		return bpm, MethodFFT, true
	}
	if bpm, ok := autocorrelationEstimate(filtered, d.opts.SampleRate, d.opts.MinHeartRate, d.opts.MaxHeartRate); ok {
		return bpm, MethodAutocorrelation, true
	}
	if bpm, ok := statisticalEstimate(d.samples, d.opts.MinHeartRate, d.opts.MaxHeartRate); ok {
		return bpm, MethodStatistical, true
	}
	return 0, "", false
}

// smooth clamps the new estimate against the previous one and blends it
// with recent history so successive readings never jump.
func (d *Detector) smooth(raw float64) float64 {
	raw = clampRate(raw, d.opts.MinHeartRate, d.opts.MaxHeartRate)

	if d.current != nil {
		maxDelta := math.Max(5, *d.current*0.1)
		if raw > *d.current+maxDelta {
			raw = *d.current + maxDelta
		} else if raw < *d.current-maxDelta {
			raw = *d.current - maxDelta
		}
	}

	d.history = append(d.history, raw)
	if excess := len(d.history) - d.opts.HistorySize; excess > 0 {
		d.history = d.history[excess:]
	}

	if len(d.history) >= 3 {
		recent := d.history[len(d.history)-3:]
		return 0.2*recent[0] + 0.3*recent[1] + 0.5*recent[2]
	}
	return raw
}

func clampRate(v float64, min, max int) float64 {
	return math.Max(float64(min), math.Min(float64(max), v))
}

func (d *Detector) reading(faceDetected bool, now time.Time) Reading {
	r := Reading{
		FaceDetected: faceDetected,
		State:        d.state.String(),
		SignalLength: len(d.samples),
		Progress:     d.progress(now),
	}
	if d.current != nil {
		hr := int(math.Round(*d.current))
		r.HeartRate = &hr
		r.Method = d.method
	}
	return r
}

func (d *Detector) progress(now time.Time) Progress {
	switch d.state {
	case StateCounting:
		elapsed := now.Sub(d.countdownStart)
		remaining := d.opts.Countdown - elapsed
		if remaining < 0 {
			remaining = 0
		}
		percent := math.Min(100, elapsed.Seconds()/d.opts.Countdown.Seconds()*100)
		return Progress{
			CountdownActive:  true,
			RemainingSeconds: int(remaining.Seconds()),
			ProgressPercent:  percent,
			Message:          fmt.Sprintf("calibrating, %ds remaining", int(remaining.Seconds())+1),
		}
	case StateCalculating:
		return Progress{
			ProgressPercent: 100,
			Message:         "live heart-rate monitoring",
		}
	default:
		return Progress{
			RemainingSeconds: int(d.opts.Countdown.Seconds()),
			Message:          "waiting for face",
		}
	}
}
