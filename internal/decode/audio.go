package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"examsight/internal/media"
)

// AudioOptions configures an audio pipe.
type AudioOptions struct {
	Binary        string
	URL           string
	SampleRate    int
	Channels      int
	WindowSeconds float64
	// ReadSize is the chunk size for pipe reads.
	ReadSize int
}

func (o AudioOptions) withDefaults() AudioOptions {
	if o.Binary == "" {
		o.Binary = "ffmpeg"
	}
	if o.SampleRate <= 0 {
		o.SampleRate = 16000
	}
	if o.Channels <= 0 {
		o.Channels = 1
	}
	if o.WindowSeconds <= 0 {
		o.WindowSeconds = 2.0
	}
	if o.ReadSize <= 0 {
		o.ReadSize = 4096
	}
	return o
}

// AudioPipe reads s16le PCM from an ffmpeg pipe and slices it into
// fixed-duration windows.
type AudioPipe struct {
	opts   AudioOptions
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer

	window  int
	pending []byte
	readBuf []byte
}

// OpenAudio launches ffmpeg decoding the stream URL into mono s16le PCM
// on stdout.
func OpenAudio(ctx context.Context, opts AudioOptions) (*AudioPipe, error) {
	opts = opts.withDefaults()
	if opts.URL == "" {
		return nil, errors.New("stream url required")
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", opts.URL,
		"-vn",
		"-ac", strconv.Itoa(opts.Channels),
		"-ar", strconv.Itoa(opts.SampleRate),
		"-f", "s16le",
		"pipe:1",
	}
	cmd := commandContext(ctx, opts.Binary, args...) //nolint:gosec
	setupProcessGroup(cmd)

	stderr := newTailBuffer(2048)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &AudioPipe{
		opts:    opts,
		cmd:     cmd,
		stdout:  stdout,
		stderr:  stderr,
		window:  media.WindowBytes(opts.SampleRate, opts.WindowSeconds),
		readBuf: make([]byte, opts.ReadSize),
	}, nil
}

// ReadWindow blocks until one complete window of PCM has accumulated.
// The pending buffer never holds more than one window plus one read.
func (p *AudioPipe) ReadWindow() (*media.PCMWindow, error) {
	for len(p.pending) < p.window {
		n, err := p.stdout.Read(p.readBuf)
		if n > 0 {
			p.pending = append(p.pending, p.readBuf[:n]...)
		}
		if err != nil {
			return nil, fmt.Errorf("read pcm: %w", err)
		}
	}

	data := make([]byte, p.window)
	copy(data, p.pending)
	p.pending = p.pending[:copy(p.pending, p.pending[p.window:])]

	return &media.PCMWindow{SampleRate: p.opts.SampleRate, Data: data}, nil
}

// Close kills the ffmpeg process group and reaps it, bounded by timeout.
func (p *AudioPipe) Close(timeout time.Duration) error {
	_ = p.stdout.Close()
	err := stopProcess(p.cmd, timeout)
	if err != nil && !errors.Is(err, errWaitTimeout) {
		return nil
	}
	return err
}

// Stderr returns the tail of ffmpeg's error output for diagnostics.
func (p *AudioPipe) Stderr() string {
	return strings.TrimSpace(p.stderr.String())
}
