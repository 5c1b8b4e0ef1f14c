package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"examsight/internal/logging"
	"examsight/internal/media"
	"examsight/internal/ppg"
	"examsight/internal/statecache"
)

// Stream connection states surfaced in status output.
const (
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateDisconnected = "disconnected"
)

// worker ingests one stream: a video goroutine, optionally an audio
// goroutine, and the shared per-stream analysis plumbing.
type worker struct {
	name      string
	url       string
	sessionID string
	startedAt time.Time

	sup    *Supervisor
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	detector *ppg.Detector
	// faceDetected is the latest classifier verdict, fed to the
	// detector on every frame. Only the video goroutine touches it.
	// It starts true so the centered region is sampled when no
	// classifier result has arrived yet.
	faceDetected bool

	mu             sync.Mutex
	state          string
	lastFrame      time.Time
	audioStarted   bool
	audioChunks    int64
	audioBytes     int64
	lastCheckpoint map[string]time.Time
}

func (w *worker) setState(state string) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()
}

func (w *worker) noteFrame(at time.Time) {
	w.mu.Lock()
	w.lastFrame = at
	w.mu.Unlock()
}

func (w *worker) noteAudio(bytes int) {
	w.mu.Lock()
	w.audioStarted = true
	w.audioChunks++
	w.audioBytes += int64(bytes)
	w.mu.Unlock()
}

// run owns the video ingest loop for the worker's lifetime. The audio
// loop runs in its own goroutine when enabled; run joins it before
// closing done.
func (w *worker) run() {
	defer close(w.done)

	var audioDone chan struct{}
	if w.sup.audioEnabled {
		audioDone = make(chan struct{})
		go func() {
			defer close(audioDone)
			w.runAudio()
		}()
	}

	w.runVideo()

	if audioDone != nil {
		<-audioDone
	}
	w.setState(StateDisconnected)
}

func (w *worker) runVideo() {
	backoff := w.sup.backoffInitial
	dispatchInterval := w.sup.dispatchInterval
	openWarned := false

	for w.ctx.Err() == nil {
		w.setState(StateConnecting)
		src, err := w.sup.factory.OpenVideo(w.ctx, w.url)
		if err != nil {
			if w.ctx.Err() != nil {
				return
			}
			// Warn once per outage, then retry quietly.
			if !openWarned {
				w.logger.Warn("video decode unavailable",
					logging.Error(err),
					logging.Duration("retry_in", backoff))
				openWarned = true
			} else {
				w.logger.Debug("video decode still unavailable",
					logging.Error(err),
					logging.Duration("retry_in", backoff))
			}
			w.sup.metrics.IncReconnects(w.name)
			if !w.sleep(backoff) {
				return
			}
			backoff = w.nextBackoff(backoff)
			continue
		}

		w.setState(StateConnected)
		openWarned = false
		emptyReads := 0
		var lastDispatch time.Time

		for w.ctx.Err() == nil {
			frame, err := src.ReadFrame()
			if err != nil {
				if w.ctx.Err() != nil {
					break
				}
				emptyReads++
				w.sup.metrics.IncEmptyReads(w.name)
				if emptyReads >= w.sup.emptyReadLimit {
					w.logger.Warn("stream stalled, reconnecting",
						logging.Int("empty_reads", emptyReads))
					break
				}
				continue
			}

			emptyReads = 0
			backoff = w.sup.backoffInitial
			w.noteFrame(frame.CapturedAt)
			w.sup.metrics.IncFramesDecoded(w.name)

			// The detector needs the native sample rate; only the
			// outbound fan-out is throttled.
			small := media.Downsample(frame, w.sup.maxDispatchWidth)
			reading := w.detector.ProcessFrame(small, w.faceDetected)

			if dispatchInterval > 0 && frame.CapturedAt.Sub(lastDispatch) < dispatchInterval {
				w.sup.metrics.IncFramesDropped(w.name)
				continue
			}
			lastDispatch = frame.CapturedAt
			w.dispatchFrame(small, reading)
		}

		_ = src.Close(w.sup.stopJoinTimeout)
		if w.ctx.Err() != nil {
			return
		}
		w.setState(StateDisconnected)
		w.sup.metrics.IncReconnects(w.name)
		if !w.sleep(backoff) {
			return
		}
		backoff = w.nextBackoff(backoff)
	}
}

// dispatchFrame publishes the latest heart reading and runs the
// throttled classifier call. Classifier verdicts feed the face flag
// used by the per-frame detector; failures are logged and skipped.
func (w *worker) dispatchFrame(frame *media.Frame, reading ppg.Reading) {
	if w.ctx.Err() != nil {
		return
	}
	w.sup.cache.Update(w.name, statecache.ModalityHeart, reading)
	w.sup.hub.Publish(w.name, "heart", reading)
	w.checkpoint("heart", reading)

	result, err := w.sup.videoSink.AnalyzeFrame(w.ctx, frame)
	if err != nil {
		if w.ctx.Err() == nil {
			w.logger.Warn("frame analysis failed", logging.Error(err))
			w.sup.metrics.IncAnalysisErrors(w.name, "video")
		}
		return
	}
	w.faceDetected = result.FaceDetected

	if w.ctx.Err() != nil {
		return
	}
	w.sup.cache.Update(w.name, statecache.ModalityVideo, result)
	w.sup.hub.Publish(w.name, "video", result)
	w.checkpoint("video", result)
}

// checkpoint writes a journal row at most once per second per kind.
func (w *worker) checkpoint(kind string, payload any) {
	if w.sup.journal == nil {
		return
	}

	now := time.Now()
	w.mu.Lock()
	if last, ok := w.lastCheckpoint[kind]; ok && now.Sub(last) < time.Second {
		w.mu.Unlock()
		return
	}
	w.lastCheckpoint[kind] = now
	w.mu.Unlock()

	if err := w.sup.journal.AddCheckpoint(w.ctx, w.sessionID, w.name, kind, payload); err != nil && w.ctx.Err() == nil {
		w.logger.Warn("checkpoint write failed",
			logging.String("kind", kind),
			logging.Error(err))
	}
}

func (w *worker) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > w.sup.backoffMax {
		next = w.sup.backoffMax
	}
	return next
}

// sleep waits for d unless the worker is cancelled first.
func (w *worker) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-w.ctx.Done():
		return false
	}
}
