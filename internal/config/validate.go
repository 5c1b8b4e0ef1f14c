package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validatePPG(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateIngest() error {
	if c.Ingest.FrameWidth <= 0 || c.Ingest.FrameHeight <= 0 {
		return errors.New("ingest.frame_width and ingest.frame_height must be positive")
	}
	if c.Ingest.EmptyReadLimit <= 0 {
		return errors.New("ingest.empty_read_limit must be positive")
	}
	if c.Ingest.BackoffInitialMS <= 0 || c.Ingest.BackoffMaxMS < c.Ingest.BackoffInitialMS {
		return errors.New("ingest backoff bounds must satisfy 0 < initial <= max")
	}
	if c.Ingest.DispatchPerSecond <= 0 {
		return errors.New("ingest.dispatch_per_second must be positive")
	}
	if c.Ingest.StopJoinTimeoutMS <= 0 {
		return errors.New("ingest.stop_join_timeout_ms must be positive")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if !c.Audio.Enabled {
		return nil
	}
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if c.Audio.Channels != 1 {
		return fmt.Errorf("audio.channels: only mono is supported, got %d", c.Audio.Channels)
	}
	if c.Audio.WindowSeconds <= 0 {
		return errors.New("audio.window_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePPG() error {
	if c.PPG.CountdownSeconds <= 0 {
		return errors.New("ppg.countdown_seconds must be positive")
	}
	if c.PPG.UpdateIntervalSeconds <= 0 {
		return errors.New("ppg.update_interval_seconds must be positive")
	}
	if c.PPG.MinHeartRate <= 0 || c.PPG.MaxHeartRate <= c.PPG.MinHeartRate {
		return errors.New("ppg heart-rate range must satisfy 0 < min < max")
	}
	if c.PPG.AssumedFPS <= 0 {
		return errors.New("ppg.assumed_fps must be positive")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if !c.Analysis.Enabled {
		return nil
	}
	if c.Analysis.BaseURL == "" {
		return errors.New("analysis.base_url must be set when analysis.enabled is true")
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		return errors.New("analysis.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
