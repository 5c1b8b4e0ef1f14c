// Package metrics exposes Prometheus instrumentation for the ingestion
// daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the stream monitor.
type Metrics struct {
	registry            *prometheus.Registry
	framesDecodedTotal  *prometheus.CounterVec
	framesDroppedTotal  *prometheus.CounterVec
	emptyReadsTotal     *prometheus.CounterVec
	reconnectsTotal     *prometheus.CounterVec
	audioWindowsTotal   *prometheus.CounterVec
	analysisErrorsTotal *prometheus.CounterVec
	activeStreams       prometheus.Gauge
}

// New creates and registers all monitor metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	framesDecodedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "examsight_frames_decoded_total",
		Help: "Total number of video frames decoded",
	}, []string{"stream"})
	framesDroppedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "examsight_frames_dropped_total",
		Help: "Total number of frames skipped by dispatch throttling or errors",
	}, []string{"stream"})
	emptyReadsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "examsight_empty_reads_total",
		Help: "Total number of failed or empty decode reads",
	}, []string{"stream"})
	reconnectsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "examsight_reconnects_total",
		Help: "Total number of stream reconnect attempts",
	}, []string{"stream"})
	audioWindowsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "examsight_audio_windows_total",
		Help: "Total number of complete audio windows analyzed",
	}, []string{"stream"})
	analysisErrorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "examsight_analysis_errors_total",
		Help: "Total number of analysis sink failures",
	}, []string{"stream", "modality"})
	activeStreams := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "examsight_active_streams",
		Help: "Number of streams currently supervised",
	})

	registry.MustRegister(
		framesDecodedTotal,
		framesDroppedTotal,
		emptyReadsTotal,
		reconnectsTotal,
		audioWindowsTotal,
		analysisErrorsTotal,
		activeStreams,
	)

	return &Metrics{
		registry:            registry,
		framesDecodedTotal:  framesDecodedTotal,
		framesDroppedTotal:  framesDroppedTotal,
		emptyReadsTotal:     emptyReadsTotal,
		reconnectsTotal:     reconnectsTotal,
		audioWindowsTotal:   audioWindowsTotal,
		analysisErrorsTotal: analysisErrorsTotal,
		activeStreams:       activeStreams,
	}
}

// IncFramesDecoded increments the decoded frame counter for a stream.
func (m *Metrics) IncFramesDecoded(stream string) {
	m.framesDecodedTotal.WithLabelValues(stream).Inc()
}

// IncFramesDropped increments the dropped frame counter for a stream.
func (m *Metrics) IncFramesDropped(stream string) {
	m.framesDroppedTotal.WithLabelValues(stream).Inc()
}

// IncEmptyReads increments the empty read counter for a stream.
func (m *Metrics) IncEmptyReads(stream string) {
	m.emptyReadsTotal.WithLabelValues(stream).Inc()
}

// IncReconnects increments the reconnect counter for a stream.
func (m *Metrics) IncReconnects(stream string) {
	m.reconnectsTotal.WithLabelValues(stream).Inc()
}

// IncAudioWindows increments the audio window counter for a stream.
func (m *Metrics) IncAudioWindows(stream string) {
	m.audioWindowsTotal.WithLabelValues(stream).Inc()
}

// IncAnalysisErrors increments the sink failure counter.
func (m *Metrics) IncAnalysisErrors(stream, modality string) {
	m.analysisErrorsTotal.WithLabelValues(stream, modality).Inc()
}

// SetActiveStreams sets the supervised stream gauge.
func (m *Metrics) SetActiveStreams(n int) {
	m.activeStreams.Set(float64(n))
}

// Handler serves the registry. updateGauges runs before each scrape to
// refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
