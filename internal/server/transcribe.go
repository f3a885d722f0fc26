package server

import (
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/hantube/hantube/internal/observe"
)

// transcribeRequest is the body of POST /api/transcribe.
type transcribeRequest struct {
	// URL is the video to transcribe, in any form yt-dlp accepts.
	URL string `json:"url"`
}

// handleTranscribe downloads the video's audio, transcribes it, and streams
// one NDJSON update per corrected segment. Download and transcription happen
// before the stream starts, so those failures are reported with proper
// status codes; per-segment correction failures degrade to the uncorrected
// segment inside the stream.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.deps.Media == nil || s.deps.STT == nil || s.deps.Corrector == nil {
		writeError(w, http.StatusServiceUnavailable, "transcription is not configured")
		return
	}

	var req transcribeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if u, err := url.Parse(req.URL); err != nil || u.Scheme == "" || u.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be an absolute video URL")
		return
	}

	ctx := r.Context()

	mediaStart := time.Now()
	audio, err := s.deps.Media.ExtractAudio(ctx, req.URL)
	if err != nil {
		s.logger.Error("audio extraction failed", "url", req.URL, "err", err)
		writeError(w, http.StatusBadGateway, "audio extraction failed: "+err.Error())
		return
	}
	defer func() {
		if err := audio.Cleanup(); err != nil {
			s.logger.Warn("audio cleanup failed", "err", err)
		}
	}()
	s.metrics.MediaDuration.Record(ctx, time.Since(mediaStart).Seconds())

	sttStart := time.Now()
	segments, err := s.deps.STT.Transcribe(ctx, audio.Path)
	if err != nil {
		s.logger.Error("transcription failed", "url", req.URL, "err", err)
		writeError(w, http.StatusBadGateway, "transcription failed: "+err.Error())
		return
	}
	s.metrics.STTDuration.Record(ctx, time.Since(sttStart).Seconds())

	streamAttr := metric.WithAttributes(observe.Attr("stream", "transcribe"))
	s.metrics.ActiveStreams.Add(ctx, 1, streamAttr)
	defer s.metrics.ActiveStreams.Add(ctx, -1, streamAttr)

	nw := newNDJSONWriter(w)
	for u := range s.deps.Corrector.Correct(ctx, segments) {
		if err := nw.Send(u); err != nil {
			s.logger.Warn("transcribe stream aborted", "err", err)
			return
		}
	}
}
