package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	LogDir     string `toml:"log_dir"`
	JournalDir string `toml:"journal_dir"`
	APIBind    string `toml:"api_bind"`
}

// Ingest contains per-stream video ingestion settings.
type Ingest struct {
	FFmpegBinary      string `toml:"ffmpeg_binary"`
	FrameWidth        int    `toml:"frame_width"`
	FrameHeight       int    `toml:"frame_height"`
	EmptyReadLimit    int    `toml:"empty_read_limit"`
	BackoffInitialMS  int    `toml:"backoff_initial_ms"`
	BackoffMaxMS      int    `toml:"backoff_max_ms"`
	DispatchPerSecond int    `toml:"dispatch_per_second"`
	StopJoinTimeoutMS int    `toml:"stop_join_timeout_ms"`
}

// Audio contains the PCM decode parameters for the audio worker.
type Audio struct {
	Enabled       bool    `toml:"enabled"`
	SampleRate    int     `toml:"sample_rate"`
	Channels      int     `toml:"channels"`
	WindowSeconds float64 `toml:"window_seconds"`
}

// PPG contains heart-rate detector tuning.
type PPG struct {
	CountdownSeconds      float64 `toml:"countdown_seconds"`
	UpdateIntervalSeconds float64 `toml:"update_interval_seconds"`
	MinHeartRate          int     `toml:"min_heart_rate"`
	MaxHeartRate          int     `toml:"max_heart_rate"`
	AssumedFPS            float64 `toml:"assumed_fps"`
}

// Analysis contains the external emotion classifier endpoint settings.
type Analysis struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for examsight.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Ingest   Ingest   `toml:"ingest"`
	Audio    Audio    `toml:"audio"`
	PPG      PPG      `toml:"ppg"`
	Analysis Analysis `toml:"analysis"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/examsight/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	// Best effort: a missing .env is the common case.
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("EXAMSIGHT_ANALYSIS_URL")); v != "" {
		c.Analysis.BaseURL = v
		c.Analysis.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv("EXAMSIGHT_API_BIND")); v != "" {
		c.Paths.APIBind = v
	}
	if v := strings.TrimSpace(os.Getenv("EXAMSIGHT_FFMPEG_BIN")); v != "" {
		c.Ingest.FFmpegBinary = v
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("examsight.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.JournalDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
