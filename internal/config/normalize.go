package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.JournalDir, err = expandPath(c.Paths.JournalDir); err != nil {
		return err
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Ingest.FFmpegBinary = strings.TrimSpace(c.Ingest.FFmpegBinary)
	c.Analysis.BaseURL = strings.TrimSpace(strings.TrimSuffix(c.Analysis.BaseURL, "/"))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	if c.Ingest.FFmpegBinary == "" {
		c.Ingest.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	return nil
}
