// Package server exposes the transcript service over HTTP.
//
// All API routes live under /api and speak JSON. Operational endpoints
// (/healthz, /readyz, /metrics) sit at the root. Every handler runs
// behind the observability middleware, which traces requests, records
// latency and stamps correlation ids.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/dictionary"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/health"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/observe"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/rewrite"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/store"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript/confidence"
)

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithLogger sets the request logger. Default: [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHealth sets the health handler serving /healthz and /readyz.
// Default: a handler with no readiness checks.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithThresholdDefaults sets the auto-threshold parameters used when a
// request does not override them.
func WithThresholdDefaults(percentile, maxThreshold float64) Option {
	return func(s *Server) {
		s.thresholdOpts = []confidence.Option{
			confidence.WithPercentile(percentile),
			confidence.WithMaxThreshold(maxThreshold),
		}
	}
}

// Server is the HTTP front of the transcript service.
type Server struct {
	transcripts store.TranscriptStore
	dict        dictionary.Store
	suggester   *dictionary.Suggester
	engine      *rewrite.Engine

	logger        *slog.Logger
	health        *health.Handler
	thresholdOpts []confidence.Option
}

// New assembles a [Server] over its collaborators. engine may be nil when
// no LLM provider is configured; the rewrite endpoint then returns 503.
func New(transcripts store.TranscriptStore, dict dictionary.Store, engine *rewrite.Engine, opts ...Option) *Server {
	s := &Server{
		transcripts: transcripts,
		dict:        dict,
		suggester:   dictionary.NewSuggester(),
		engine:      engine,
		logger:      slog.Default(),
		health:      health.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the fully routed HTTP handler, wrapped in the
// observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/transcripts", s.handleListTranscripts)
	mux.HandleFunc("PUT /api/transcripts/{id}", s.handleSaveTranscript)
	mux.HandleFunc("GET /api/transcripts/{id}", s.handleGetTranscript)
	mux.HandleFunc("DELETE /api/transcripts/{id}", s.handleDeleteTranscript)
	mux.HandleFunc("POST /api/transcripts/{id}/segments/{segmentID}/confirm", s.handleConfirmSegment)
	mux.HandleFunc("POST /api/transcripts/{id}/threshold", s.handleAutoThreshold)
	mux.HandleFunc("POST /api/transcripts/{id}/scope", s.handleScope)
	mux.HandleFunc("POST /api/transcripts/{id}/rewrite", s.handleRewrite)

	mux.HandleFunc("GET /api/dictionary/terms", s.handleListTerms)
	mux.HandleFunc("POST /api/dictionary/terms", s.handleCreateTerm)
	mux.HandleFunc("GET /api/dictionary/terms/{id}", s.handleGetTerm)
	mux.HandleFunc("PUT /api/dictionary/terms/{id}", s.handleUpdateTerm)
	mux.HandleFunc("DELETE /api/dictionary/terms/{id}", s.handleDeleteTerm)
	mux.HandleFunc("GET /api/dictionary/suggestions", s.handleSuggest)

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(observe.DefaultMetrics())(mux)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v with the given status. Encoding failures are logged,
// not surfaced; the status line has already been written.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		observe.Logger(r.Context()).Error("server: encode response", "err", err)
	}
}

// writeError maps err to an HTTP status and writes the JSON error body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, dictionary.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, dictionary.ErrDuplicateID):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		observe.Logger(r.Context()).Error("server: request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
	}
	s.writeJSON(w, r, status, errorBody{Error: err.Error()})
}

// decode reads the request body as JSON into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

// badRequest writes a 400 with the given message.
func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	s.writeJSON(w, r, http.StatusBadRequest, errorBody{Error: msg})
}
