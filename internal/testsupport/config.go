// Package testsupport provides helpers for building isolated test
// fixtures: configs rooted in per-test temp directories and stubbed
// external binaries.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"examsight/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per
// test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.JournalDir = filepath.Join(base, "journal")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Ingest.BackoffInitialMS = 1
	cfgVal.Ingest.BackoffMaxMS = 5
	cfgVal.Ingest.StopJoinTimeoutMS = 100

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAudioEnabled turns the audio worker on for the test config.
func WithAudioEnabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Audio.Enabled = true
	}
}

// WithAnalysisURL points the config at a classifier endpoint.
func WithAnalysisURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analysis.Enabled = true
		b.cfg.Analysis.BaseURL = url
	}
}

// WithStubbedFFmpeg writes a stub ffmpeg executable, prepends it to
// PATH, and configures the ingest binary to use it.
func WithStubbedFFmpeg() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffmpeg")
		script := []byte("#!/bin/sh\nexit 0\n")
		if err := os.WriteFile(target, script, 0o755); err != nil {
			b.t.Fatalf("write stub ffmpeg: %v", err)
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
		b.cfg.Ingest.FFmpegBinary = target
	}
}
