package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"examsight/internal/analysis"
	"examsight/internal/broadcast"
	"examsight/internal/config"
	"examsight/internal/logging"
	"examsight/internal/ppg"
	"examsight/internal/statecache"
)

// Journal is the checkpoint surface the supervisor writes through. Nil
// disables journaling.
type Journal interface {
	BeginSession(ctx context.Context, stream string) (string, error)
	EndSession(ctx context.Context, sessionID string) error
	AddCheckpoint(ctx context.Context, sessionID, stream, kind string, payload any) error
}

// Status describes one supervised stream.
type Status struct {
	Name                string  `json:"name"`
	URL                 string  `json:"url"`
	SessionID           string  `json:"session_id"`
	State               string  `json:"state"`
	Connected           bool    `json:"connected"`
	LastFrameAgeSeconds float64 `json:"last_frame_age_seconds"`
	AudioStarted        bool    `json:"audio_started"`
	AudioChunks         int64   `json:"audio_chunks"`
	AudioBytes          int64   `json:"audio_bytes"`
	StartedAt           string  `json:"started_at"`
}

// Supervisor is the stream registry. All exported methods are safe for
// concurrent use.
type Supervisor struct {
	logger    *slog.Logger
	factory   SourceFactory
	videoSink analysis.VideoSink
	audioSink analysis.AudioSink
	cache     *statecache.Cache
	hub       *broadcast.Hub
	journal   Journal
	metrics   StreamMetrics

	ppgOptions       ppg.Options
	audioEnabled     bool
	emptyReadLimit   int
	backoffInitial   time.Duration
	backoffMax       time.Duration
	dispatchInterval time.Duration
	stopJoinTimeout  time.Duration
	maxDispatchWidth int

	mu      sync.Mutex
	workers map[string]*worker
}

// StreamMetrics is the instrumentation surface the workers report into.
type StreamMetrics interface {
	IncFramesDecoded(stream string)
	IncFramesDropped(stream string)
	IncEmptyReads(stream string)
	IncReconnects(stream string)
	IncAudioWindows(stream string)
	IncAnalysisErrors(stream, modality string)
	SetActiveStreams(n int)
}

// New constructs a Supervisor from config and collaborators.
func New(cfg *config.Config, logger *slog.Logger, factory SourceFactory, videoSink analysis.VideoSink, audioSink analysis.AudioSink, cache *statecache.Cache, hub *broadcast.Hub, journal Journal, metrics StreamMetrics) (*Supervisor, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if factory == nil {
		return nil, errors.New("source factory required")
	}
	if cache == nil {
		cache = statecache.New()
	}
	if hub == nil {
		hub = broadcast.NewHub(logger)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if videoSink == nil {
		videoSink = analysis.NopSink{}
	}
	if audioSink == nil {
		audioSink = analysis.NopSink{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}

	dispatchInterval := time.Duration(0)
	if cfg.Ingest.DispatchPerSecond > 0 {
		dispatchInterval = time.Second / time.Duration(cfg.Ingest.DispatchPerSecond)
	}

	return &Supervisor{
		logger:    logging.NewComponentLogger(logger, "supervisor"),
		factory:   factory,
		videoSink: videoSink,
		audioSink: audioSink,
		cache:     cache,
		hub:       hub,
		journal:   journal,
		metrics:   metrics,
		ppgOptions: ppg.Options{
			Countdown:      secondsToDuration(cfg.PPG.CountdownSeconds),
			UpdateInterval: secondsToDuration(cfg.PPG.UpdateIntervalSeconds),
			MinHeartRate:   cfg.PPG.MinHeartRate,
			MaxHeartRate:   cfg.PPG.MaxHeartRate,
			SampleRate:     cfg.PPG.AssumedFPS,
		},
		audioEnabled:     cfg.Audio.Enabled,
		emptyReadLimit:   cfg.Ingest.EmptyReadLimit,
		backoffInitial:   time.Duration(cfg.Ingest.BackoffInitialMS) * time.Millisecond,
		backoffMax:       time.Duration(cfg.Ingest.BackoffMaxMS) * time.Millisecond,
		dispatchInterval: dispatchInterval,
		stopJoinTimeout:  time.Duration(cfg.Ingest.StopJoinTimeoutMS) * time.Millisecond,
		maxDispatchWidth: cfg.Ingest.FrameWidth,
		workers:          make(map[string]*worker),
	}, nil
}

// Start begins supervising a stream. Starting an already-running stream
// with the same URL is a no-op; a different URL restarts the worker.
// The returned bool reports whether a new worker was launched.
func (s *Supervisor) Start(ctx context.Context, name, url string) (bool, error) {
	if name == "" {
		return false, errors.New("stream name required")
	}
	if url == "" {
		return false, errors.New("source url required")
	}

	s.mu.Lock()
	existing, ok := s.workers[name]
	s.mu.Unlock()
	if ok {
		if existing.url == url {
			return false, nil
		}
		// URL changed: replace the worker.
		s.Stop(name)
	}

	sessionID := ""
	if s.journal != nil {
		id, err := s.journal.BeginSession(ctx, name)
		if err != nil {
			s.logger.Warn("journal session unavailable",
				logging.Stream(name), logging.Error(err))
		} else {
			sessionID = id
		}
	}

	wctx, cancel := context.WithCancel(context.Background())
	w := &worker{
		name:           name,
		url:            url,
		sessionID:      sessionID,
		startedAt:      time.Now(),
		sup:            s,
		logger:         s.logger.With(logging.Stream(name)),
		ctx:            wctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		detector:       ppg.New(s.ppgOptions),
		faceDetected:   true,
		state:          StateConnecting,
		lastCheckpoint: make(map[string]time.Time),
	}

	s.mu.Lock()
	if _, exists := s.workers[name]; exists {
		s.mu.Unlock()
		cancel()
		// The session opened above has no worker to close it.
		if s.journal != nil && sessionID != "" {
			if err := s.journal.EndSession(ctx, sessionID); err != nil {
				s.logger.Warn("journal session close failed",
					logging.Stream(name), logging.Error(err))
			}
		}
		return false, errors.New("stream started concurrently")
	}
	s.workers[name] = w
	active := len(s.workers)
	s.mu.Unlock()

	s.metrics.SetActiveStreams(active)
	s.logger.Info("stream supervision started",
		logging.Stream(name), logging.String("url", url))
	go w.run()
	return true, nil
}

// Stop cancels a stream's workers and joins them. Returns false when
// the stream is unknown. After Stop returns no further sink, cache, or
// hub calls are made for the stream.
func (s *Supervisor) Stop(name string) bool {
	s.mu.Lock()
	w, ok := s.workers[name]
	if ok {
		delete(s.workers, name)
	}
	active := len(s.workers)
	s.mu.Unlock()
	if !ok {
		return false
	}

	w.cancel()
	select {
	case <-w.done:
	case <-time.After(s.stopJoinTimeout + 5*time.Second):
		s.logger.Error("worker failed to stop in time", logging.Stream(name))
	}

	if s.journal != nil && w.sessionID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.journal.EndSession(ctx, w.sessionID); err != nil {
			s.logger.Warn("journal session close failed",
				logging.Stream(name), logging.Error(err))
		}
		cancel()
	}

	s.metrics.SetActiveStreams(active)
	s.logger.Info("stream supervision stopped", logging.Stream(name))
	return true
}

// Statuses reports every supervised stream.
func (s *Supervisor) Statuses() map[string]Status {
	s.mu.Lock()
	workers := make([]*worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	out := make(map[string]Status, len(workers))
	now := time.Now()
	for _, w := range workers {
		w.mu.Lock()
		st := Status{
			Name:         w.name,
			URL:          w.url,
			SessionID:    w.sessionID,
			State:        w.state,
			Connected:    w.state == StateConnected,
			AudioStarted: w.audioStarted,
			AudioChunks:  w.audioChunks,
			AudioBytes:   w.audioBytes,
			StartedAt:    w.startedAt.UTC().Format(time.RFC3339),
		}
		if !w.lastFrame.IsZero() {
			st.LastFrameAgeSeconds = now.Sub(w.lastFrame).Seconds()
		}
		w.mu.Unlock()
		out[w.name] = st
	}
	return out
}

// DrainAll stops every stream, bounded by ctx.
func (s *Supervisor) DrainAll(ctx context.Context) {
	s.mu.Lock()
	names := make([]string, 0, len(s.workers))
	for name := range s.workers {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		s.Stop(name)
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

type nopMetrics struct{}

func (nopMetrics) IncFramesDecoded(string)       {}
func (nopMetrics) IncFramesDropped(string)       {}
func (nopMetrics) IncEmptyReads(string)          {}
func (nopMetrics) IncReconnects(string)          {}
func (nopMetrics) IncAudioWindows(string)        {}
func (nopMetrics) IncAnalysisErrors(_, _ string) {}
func (nopMetrics) SetActiveStreams(int)          {}
