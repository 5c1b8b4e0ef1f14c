package analysis

import (
	"context"

	"examsight/internal/media"
)

// VideoResult is the classifier verdict for one frame.
type VideoResult struct {
	Dominant     string             `json:"dominant"`
	Confidence   float64            `json:"confidence"`
	Scores       map[string]float64 `json:"scores,omitempty"`
	FaceDetected bool               `json:"face_detected"`
}

// AudioResult is the classifier verdict for one PCM window.
type AudioResult struct {
	Dominant   string             `json:"dominant"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

// VideoSink consumes decoded frames. Implementations must be safe for
// use from one worker goroutine per stream.
type VideoSink interface {
	AnalyzeFrame(ctx context.Context, frame *media.Frame) (VideoResult, error)
}

// AudioSink consumes complete PCM windows.
type AudioSink interface {
	AnalyzeChunk(ctx context.Context, pcm *media.PCMWindow) (AudioResult, error)
}

// NopSink satisfies both interfaces when analysis is disabled in
// config. It reports a face present so heart-rate estimation still runs
// from the centered region without a classifier.
type NopSink struct{}

func (NopSink) AnalyzeFrame(context.Context, *media.Frame) (VideoResult, error) {
	return VideoResult{FaceDetected: true}, nil
}

func (NopSink) AnalyzeChunk(context.Context, *media.PCMWindow) (AudioResult, error) {
	return AudioResult{}, nil
}

var (
	_ VideoSink = NopSink{}
	_ AudioSink = NopSink{}
)
