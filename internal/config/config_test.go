package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"examsight/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Ingest.FrameWidth != 640 || cfg.Audio.SampleRate != 16000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
log_dir = "` + filepath.Join(dir, "logs") + `"
journal_dir = "` + filepath.Join(dir, "journal") + `"

[analysis]
enabled = true
base_url = "http://classifier.local/api/"
timeout_seconds = 3

[ppg]
min_heart_rate = 45
max_heart_rate = 150
countdown_seconds = 3.0
update_interval_seconds = 1.0
assumed_fps = 30.0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved path %s, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.Analysis.BaseURL != "http://classifier.local/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Analysis.BaseURL)
	}
	if cfg.PPG.MaxHeartRate != 150 {
		t.Fatalf("expected max heart rate 150, got %d", cfg.PPG.MaxHeartRate)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero frame width", func(c *config.Config) { c.Ingest.FrameWidth = 0 }, "frame_width"},
		{"inverted backoff", func(c *config.Config) { c.Ingest.BackoffMaxMS = 1 }, "backoff"},
		{"inverted hr range", func(c *config.Config) { c.PPG.MaxHeartRate = c.PPG.MinHeartRate }, "heart-rate range"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"analysis enabled without url", func(c *config.Config) { c.Analysis.Enabled = true }, "base_url"},
		{"stereo audio", func(c *config.Config) { c.Audio.Channels = 2 }, "mono"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.PPG.MinHeartRate != 40 || cfg.PPG.MaxHeartRate != 120 {
		t.Fatalf("sample should carry defaults, got %+v", cfg.PPG)
	}
}
