package server

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/metric"

	"github.com/hantube/hantube/internal/observe"
)

// analyzeRequest is the body of POST /api/analyze.
type analyzeRequest struct {
	// Text is one or more newline-separated Chinese sentences.
	Text string `json:"text"`

	// UserLevel is the learner's TOCFL level; retrieval is filtered to it.
	UserLevel int `json:"user_level"`
}

// handleAnalyze streams one NDJSON update per input line, each carrying the
// line's grammar analysis or its failure, with progress reaching 100 on the
// final line.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.deps.Analysis == nil {
		writeError(w, http.StatusServiceUnavailable, "grammar analysis is not configured")
		return
	}

	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.UserLevel < 1 {
		writeError(w, http.StatusBadRequest, "user_level must be a positive level number")
		return
	}

	ctx := r.Context()
	streamAttr := metric.WithAttributes(observe.Attr("stream", "analyze"))
	s.metrics.ActiveStreams.Add(ctx, 1, streamAttr)
	defer s.metrics.ActiveStreams.Add(ctx, -1, streamAttr)

	nw := newNDJSONWriter(w)
	for u := range s.deps.Analysis.AnalyzeLines(ctx, req.Text, req.UserLevel) {
		status := "ok"
		if u.Error != "" {
			status = "error"
		}
		s.metrics.RecordAnalysis(ctx, status, u.Analysis != nil && u.Analysis.Matched.Found)

		if err := nw.Send(u); err != nil {
			s.logger.Warn("analyze stream aborted", "err", err)
			return
		}
	}
}
