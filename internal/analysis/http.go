package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"examsight/internal/media"
)

const userAgent = "ExamSight-Go/0.1.0"

// HTTPClient posts media to an emotion classifier service and satisfies
// both sink interfaces. Frames are downsampled before the wire to keep
// request bodies bounded.
type HTTPClient struct {
	baseURL  string
	maxWidth int
	client   *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout overrides the default 5 s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithMaxFrameWidth overrides the wire downsample bound.
func WithMaxFrameWidth(w int) Option {
	return func(c *HTTPClient) {
		if w > 0 {
			c.maxWidth = w
		}
	}
}

// NewHTTPClient builds a classifier client for the given base URL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxWidth: 320,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type framePayload struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pixels []byte `json:"pixels"` // RGB24, base64 on the wire
}

type chunkPayload struct {
	SampleRate int    `json:"sample_rate"`
	PCM        []byte `json:"pcm"` // s16le mono, base64 on the wire
}

// AnalyzeFrame posts one frame to /analyze/video.
func (c *HTTPClient) AnalyzeFrame(ctx context.Context, frame *media.Frame) (VideoResult, error) {
	if err := frame.Validate(); err != nil {
		return VideoResult{}, fmt.Errorf("analyze frame: %w", err)
	}
	small := media.Downsample(frame, c.maxWidth)

	var result VideoResult
	err := c.post(ctx, "/analyze/video", framePayload{
		Width:  small.Width,
		Height: small.Height,
		Pixels: small.Pix,
	}, &result)
	if err != nil {
		return VideoResult{}, err
	}
	return result, nil
}

// AnalyzeChunk posts one PCM window to /analyze/audio.
func (c *HTTPClient) AnalyzeChunk(ctx context.Context, pcm *media.PCMWindow) (AudioResult, error) {
	if pcm == nil || len(pcm.Data) == 0 {
		return AudioResult{}, fmt.Errorf("analyze chunk: empty window")
	}

	var result AudioResult
	err := c.post(ctx, "/analyze/audio", chunkPayload{
		SampleRate: pcm.SampleRate,
		PCM:        pcm.Data,
	}, &result)
	if err != nil {
		return AudioResult{}, err
	}
	return result, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("classifier returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode classifier response: %w", err)
	}
	return nil
}

var (
	_ VideoSink = (*HTTPClient)(nil)
	_ AudioSink = (*HTTPClient)(nil)
)
