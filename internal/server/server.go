// Package server exposes the hantube HTTP API.
//
// Streaming endpoints (/api/transcribe, /api/analyze) respond with
// newline-delimited JSON: one update object per line, flushed as soon as the
// underlying pipeline produces it, so clients can render progress while long
// jobs run. Non-streaming endpoints respond with a single JSON object.
//
// Subsystems are injected through [Deps]; any nil dependency disables its
// endpoints with 503 Service Unavailable rather than failing at startup, so
// a partially configured server still serves what it can.
package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hantube/hantube/internal/analysis"
	"github.com/hantube/hantube/internal/health"
	"github.com/hantube/hantube/internal/media"
	"github.com/hantube/hantube/internal/observe"
	"github.com/hantube/hantube/internal/transcript"
	"github.com/hantube/hantube/internal/vocab"
	"github.com/hantube/hantube/pkg/provider/stt"
)

// Deps holds the subsystems the API serves. Nil fields disable the
// corresponding endpoints.
type Deps struct {
	// Analysis powers POST /api/analyze.
	Analysis *analysis.Service

	// Media, STT, and Corrector together power POST /api/transcribe.
	Media     *media.Extractor
	STT       stt.Provider
	Corrector *transcript.Corrector

	// Vocab powers POST /api/vocab and POST /api/simplify; Extractor powers
	// POST /api/vocab/extract.
	Vocab     *vocab.Service
	Extractor *vocab.Extractor

	// Health serves /healthz and /readyz. When nil a checker-less handler
	// is used.
	Health *health.Handler

	// Metrics instruments requests and streams. When nil the package-level
	// default instruments are used.
	Metrics *observe.Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server routes HTTP requests to the configured subsystems.
type Server struct {
	deps    Deps
	metrics *observe.Metrics
	logger  *slog.Logger
}

// New returns a [Server] over the given dependencies.
func New(deps Deps) *Server {
	s := &Server{
		deps:    deps,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handler returns the full API handler: all routes behind the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /api/vocab", s.handleVocabCard)
	mux.HandleFunc("POST /api/vocab/extract", s.handleVocabExtract)
	mux.HandleFunc("POST /api/simplify", s.handleSimplify)

	h := s.deps.Health
	if h == nil {
		h = health.New()
	}
	h.Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}
