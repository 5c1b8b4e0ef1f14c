package supervisor

import (
	"examsight/internal/logging"
	"examsight/internal/media"
	"examsight/internal/statecache"
)

// runAudio ingests the stream's audio track in parallel with video. A
// failure to open the pipe a second time disables audio for the stream;
// video is unaffected either way.
func (w *worker) runAudio() {
	backoff := w.sup.backoffInitial
	opened := false

	for w.ctx.Err() == nil {
		src, err := w.sup.factory.OpenAudio(w.ctx, w.url)
		if err != nil {
			if w.ctx.Err() != nil {
				return
			}
			if opened {
				// One reconnect chance after a working session; a
				// stream without usable audio should not retry forever.
				w.logger.Warn("audio decode lost, disabling audio", logging.Error(err))
			} else {
				w.logger.Warn("audio decode unavailable, audio disabled", logging.Error(err))
			}
			return
		}
		opened = true

		for w.ctx.Err() == nil {
			window, err := src.ReadWindow()
			if err != nil {
				if w.ctx.Err() == nil {
					w.logger.Warn("audio read failed, reconnecting", logging.Error(err))
				}
				break
			}
			backoff = w.sup.backoffInitial
			w.noteAudio(len(window.Data))
			w.sup.metrics.IncAudioWindows(w.name)
			w.dispatchAudio(window)
		}

		_ = src.Close(w.sup.stopJoinTimeout)
		if w.ctx.Err() != nil {
			return
		}
		if !w.sleep(backoff) {
			return
		}
		backoff = w.nextBackoff(backoff)
	}
}

func (w *worker) dispatchAudio(window *media.PCMWindow) {
	result, err := w.sup.audioSink.AnalyzeChunk(w.ctx, window)
	if err != nil {
		if w.ctx.Err() == nil {
			w.logger.Warn("audio analysis failed", logging.Error(err))
			w.sup.metrics.IncAnalysisErrors(w.name, "audio")
		}
		return
	}

	if w.ctx.Err() != nil {
		return
	}
	w.sup.cache.Update(w.name, statecache.ModalityAudio, result)
	w.sup.hub.Publish(w.name, "audio", result)
	w.checkpoint("audio", result)
}
