package server

import (
	"net/http"
	"strings"
)

// vocabCardRequest is the body of POST /api/vocab.
type vocabCardRequest struct {
	// Word is the Chinese word to build a study card for.
	Word string `json:"word"`
}

// handleVocabCard generates a single word card.
func (s *Server) handleVocabCard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Vocab == nil {
		writeError(w, http.StatusServiceUnavailable, "vocabulary service is not configured")
		return
	}

	var req vocabCardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	word := strings.TrimSpace(req.Word)
	if word == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}

	card, err := s.deps.Vocab.WordCard(r.Context(), word)
	if err != nil {
		s.metrics.RecordVocabCard(r.Context(), "error")
		s.logger.Error("word card generation failed", "word", word, "err", err)
		writeError(w, http.StatusBadGateway, "word card generation failed: "+err.Error())
		return
	}
	s.metrics.RecordVocabCard(r.Context(), "ok")
	writeJSON(w, http.StatusOK, card)
}

// vocabExtractRequest is the body of POST /api/vocab/extract.
type vocabExtractRequest struct {
	// Text is the transcript or sentence to mine for leveled vocabulary.
	Text string `json:"text"`
}

// vocabExtractResponse wraps the extracted word list.
type vocabExtractResponse struct {
	Words []vocabWord `json:"words"`
}

// vocabWord mirrors vocab.WordEntry for the wire.
type vocabWord struct {
	Word      string `json:"word"`
	Level     int    `json:"level"`
	Frequency int    `json:"frequency"`
}

// handleVocabExtract returns the leveled words found in the text, hardest
// and most frequent first.
func (s *Server) handleVocabExtract(w http.ResponseWriter, r *http.Request) {
	if s.deps.Extractor == nil {
		writeError(w, http.StatusServiceUnavailable, "vocabulary service is not configured")
		return
	}

	var req vocabExtractRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	entries := s.deps.Extractor.Extract(req.Text)
	resp := vocabExtractResponse{Words: make([]vocabWord, 0, len(entries))}
	for _, e := range entries {
		resp.Words = append(resp.Words, vocabWord{Word: e.Word, Level: e.Level, Frequency: e.Frequency})
	}
	writeJSON(w, http.StatusOK, resp)
}

// simplifyRequest is the body of POST /api/simplify.
type simplifyRequest struct {
	// Text is the sentence to rewrite at beginner level.
	Text string `json:"text"`
}

// handleSimplify rewrites a sentence into beginner-level Taiwanese Mandarin.
func (s *Server) handleSimplify(w http.ResponseWriter, r *http.Request) {
	if s.deps.Vocab == nil {
		writeError(w, http.StatusServiceUnavailable, "vocabulary service is not configured")
		return
	}

	var req simplifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	simp, err := s.deps.Vocab.Simplify(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("simplification failed", "err", err)
		writeError(w, http.StatusBadGateway, "simplification failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, simp)
}
