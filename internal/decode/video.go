package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"examsight/internal/media"
)

// VideoOptions configures a video pipe. Zero Binary means "ffmpeg" from
// PATH.
type VideoOptions struct {
	Binary string
	URL    string
	Width  int
	Height int
}

func (o VideoOptions) withDefaults() VideoOptions {
	if o.Binary == "" {
		o.Binary = "ffmpeg"
	}
	if o.Width <= 0 {
		o.Width = 640
	}
	if o.Height <= 0 {
		o.Height = 360
	}
	return o
}

// VideoPipe reads fixed-size RGB24 frames from an ffmpeg rawvideo pipe.
type VideoPipe struct {
	opts   VideoOptions
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
}

// OpenVideo launches ffmpeg decoding the stream URL into raw RGB24
// frames on stdout. The process dies with ctx.
func OpenVideo(ctx context.Context, opts VideoOptions) (*VideoPipe, error) {
	opts = opts.withDefaults()
	if opts.URL == "" {
		return nil, errors.New("stream url required")
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", opts.URL,
		"-an",
		"-vf", fmt.Sprintf("scale=%d:%d", opts.Width, opts.Height),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo",
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

	return &VideoPipe{opts: opts, cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// ReadFrame blocks for one complete frame. A closed or truncated pipe
// returns an error; callers decide when enough failures mean reconnect.
func (p *VideoPipe) ReadFrame() (*media.Frame, error) {
	frame := media.NewFrame(p.opts.Width, p.opts.Height)
	if _, err := io.ReadFull(p.stdout, frame.Pix); err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	frame.CapturedAt = time.Now()
	return frame, nil
}

// Close kills the ffmpeg process group and reaps it, bounded by timeout.
func (p *VideoPipe) Close(timeout time.Duration) error {
	_ = p.stdout.Close()
	err := stopProcess(p.cmd, timeout)
	if err != nil && !errors.Is(err, errWaitTimeout) {
		// Killed processes report a non-nil Wait error; only surface
		// the timeout case.
		return nil
	}
	return err
}

// Stderr returns the tail of ffmpeg's error output for diagnostics.
func (p *VideoPipe) Stderr() string {
	return strings.TrimSpace(p.stderr.String())
}
