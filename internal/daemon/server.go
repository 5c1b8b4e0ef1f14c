package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"examsight/internal/broadcast"
	"examsight/internal/logging"
	"examsight/internal/metrics"
	"examsight/internal/statecache"
	"examsight/internal/supervisor"
)

// Controller is the supervisor surface the API needs. Tests substitute
// a stub.
type Controller interface {
	Start(ctx context.Context, name, url string) (bool, error)
	Stop(name string) bool
	Statuses() map[string]supervisor.Status
}

// Server exposes the stream control API over chi.
type Server struct {
	controller Controller
	cache      *statecache.Cache
	hub        *broadcast.Hub
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewServer builds the API server. metrics may be nil to disable the
// scrape endpoint.
func NewServer(controller Controller, cache *statecache.Cache, hub *broadcast.Hub, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		controller: controller,
		cache:      cache,
		hub:        hub,
		metrics:    m,
		logger:     logging.NewComponentLogger(logger, "api"),
	}
}

// Routes assembles the HTTP routing table.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/streams", s.listStreams)
		r.Post("/streams/{name}/start", s.startStream)
		r.Post("/streams/{name}/stop", s.stopStream)
		r.Get("/streams/{name}/state", s.streamState)
		r.Get("/ws", s.serveWS)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler(func() {
			s.metrics.SetActiveStreams(len(s.controller.Statuses()))
		}))
	}
	return r
}

type startRequest struct {
	SourceURL string `json:"source_url"`
}

func (s *Server) startStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "stream name required")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SourceURL) == "" {
		writeError(w, http.StatusBadRequest, "source_url required")
		return
	}

	started, err := s.controller.Start(r.Context(), name, req.SourceURL)
	if err != nil {
		s.logger.Error("stream start failed",
			logging.Stream(name), logging.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("stream start requested",
		logging.Stream(name), logging.Bool("started", started))
	writeJSON(w, http.StatusOK, map[string]any{"started": started})
}

func (s *Server) stopStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "stream name required")
		return
	}

	if !s.controller.Stop(name) {
		writeError(w, http.StatusNotFound, "unknown stream")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stopped": true})
}

func (s *Server) listStreams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Statuses())
}

func (s *Server) streamState(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, ok := s.cache.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "no state for stream")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
