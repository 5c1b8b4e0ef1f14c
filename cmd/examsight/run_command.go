package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"examsight/internal/daemon"
	"examsight/internal/deps"
	"examsight/internal/logging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the monitoring daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			runID := time.Now().UTC().Format("20060102T150405Z")
			logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("examsight-%s.log", runID))
			logFile, err := logging.OpenLogFile(logPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warn: unable to open log file: %v\n", err)
			}

			opts := logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
			if logFile != nil {
				defer logFile.Close()
				opts.Writers = []io.Writer{logFile}
			}
			logger, err := logging.New(opts)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			if status := deps.CheckFFmpeg(cfg.Ingest.FFmpegBinary); !status.Available {
				logger.Warn("ffmpeg not found, streams will retry until it appears",
					logging.String("binary", status.Command),
					logging.String("detail", status.Detail))
			}

			d, err := daemon.New(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := d.Close(); err != nil {
					logger.Warn("daemon close", logging.Error(err))
				}
			}()

			if err := d.Start(signalCtx); err != nil {
				return err
			}
			return d.Wait(signalCtx)
		},
	}
}
