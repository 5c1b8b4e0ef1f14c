package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"examsight/internal/analysis"
	"examsight/internal/broadcast"
	"examsight/internal/config"
	"examsight/internal/journal"
	"examsight/internal/logging"
	"examsight/internal/metrics"
	"examsight/internal/statecache"
	"examsight/internal/supervisor"
)

// Daemon coordinates stream supervision and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	sup     *supervisor.Supervisor
	cache   *statecache.Cache
	hub     *broadcast.Hub
	store   *journal.Store
	metrics *metrics.Metrics

	lockPath string
	lock     *flock.Flock

	server   *http.Server
	running  atomic.Bool
	serveErr chan error
}

// New constructs a daemon with all collaborators wired from config.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store, err := journal.Open(cfg.Paths.JournalDir)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	cache := statecache.New()
	hub := broadcast.NewHub(logger)
	mets := metrics.New()

	var videoSink analysis.VideoSink = analysis.NopSink{}
	var audioSink analysis.AudioSink = analysis.NopSink{}
	if cfg.Analysis.Enabled {
		client := analysis.NewHTTPClient(cfg.Analysis.BaseURL,
			analysis.WithTimeout(time.Duration(cfg.Analysis.TimeoutSeconds)*time.Second))
		videoSink = client
		audioSink = client
	}

	factory := supervisor.FFmpegFactory{Ingest: cfg.Ingest, Audio: cfg.Audio}
	sup, err := supervisor.New(cfg, logger, factory, videoSink, audioSink, cache, hub, store, mets)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "examsightd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		sup:      sup,
		cache:    cache,
		hub:      hub,
		store:    store,
		metrics:  mets,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins serving the control API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another examsight daemon instance is already running")
	}

	server := NewServer(d.sup, d.cache, d.hub, d.metrics, d.logger)
	d.server = &http.Server{
		Addr:              d.cfg.Paths.APIBind,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	listener, err := net.Listen("tcp", d.cfg.Paths.APIBind)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("bind api address: %w", err)
	}

	d.serveErr = make(chan error, 1)
	go func() {
		if err := d.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.serveErr <- err
		}
		close(d.serveErr)
	}()

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("bind", d.cfg.Paths.APIBind),
		logging.String("lock", d.lockPath))
	return nil
}

// Wait blocks until ctx is cancelled or the API server fails.
func (d *Daemon) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case err, ok := <-d.serveErr:
		if !ok {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	}
}

// Stop drains every stream, shuts the API down, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if d.server != nil {
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("api shutdown incomplete", logging.Error(err))
		}
	}
	d.sup.DrainAll(shutdownCtx)

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the journal.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
