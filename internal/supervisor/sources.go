package supervisor

import (
	"context"
	"time"

	"examsight/internal/config"
	"examsight/internal/decode"
	"examsight/internal/media"
)

// FrameSource yields decoded video frames until it fails or is closed.
type FrameSource interface {
	ReadFrame() (*media.Frame, error)
	Close(timeout time.Duration) error
}

// AudioSource yields complete PCM windows until it fails or is closed.
type AudioSource interface {
	ReadWindow() (*media.PCMWindow, error)
	Close(timeout time.Duration) error
}

// SourceFactory opens decode pipes for a stream URL. Tests inject fakes;
// production uses the ffmpeg-backed factory.
type SourceFactory interface {
	OpenVideo(ctx context.Context, url string) (FrameSource, error)
	OpenAudio(ctx context.Context, url string) (AudioSource, error)
}

// FFmpegFactory builds decode pipes from the ingest configuration.
type FFmpegFactory struct {
	Ingest config.Ingest
	Audio  config.Audio
}

func (f FFmpegFactory) OpenVideo(ctx context.Context, url string) (FrameSource, error) {
	return decode.OpenVideo(ctx, decode.VideoOptions{
		Binary: f.Ingest.FFmpegBinary,
		URL:    url,
		Width:  f.Ingest.FrameWidth,
		Height: f.Ingest.FrameHeight,
	})
}

func (f FFmpegFactory) OpenAudio(ctx context.Context, url string) (AudioSource, error) {
	return decode.OpenAudio(ctx, decode.AudioOptions{
		Binary:        f.Ingest.FFmpegBinary,
		URL:           url,
		SampleRate:    f.Audio.SampleRate,
		Channels:      f.Audio.Channels,
		WindowSeconds: f.Audio.WindowSeconds,
	})
}

var _ SourceFactory = FFmpegFactory{}
