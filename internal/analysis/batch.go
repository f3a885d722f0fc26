package analysis

import (
	"context"
	"errors"
	"strings"
)

// Update is one progress-tagged partial result of a multi-line analysis.
// Exactly one of Analysis or Error is meaningful per update; the final update
// of a stream always carries Progress == 100.
type Update struct {
	// Progress is the percentage of input lines processed so far, 1..100.
	Progress int `json:"progress"`

	// OriginalText is the input line this update describes, unmodified.
	OriginalText string `json:"original_text"`

	// Analysis is the structured result for the line. Nil when the line
	// failed to analyze.
	Analysis *Result `json:"analysis,omitempty"`

	// Rendered is the human-readable form of Analysis, empty on failure.
	Rendered string `json:"rendered,omitempty"`

	// Error describes why the line could not be analyzed. Empty on success.
	Error string `json:"error,omitempty"`

	// RawOutput is the backend's verbatim response when it violated the JSON
	// contract, kept for diagnosis. Empty otherwise.
	RawOutput string `json:"raw_output,omitempty"`
}

// AnalyzeLines analyzes each non-empty line of text at the given learner
// level and streams one [Update] per line in input order. The channel closes
// after the last line or when ctx is canceled; callers may stop consuming at
// any point without leaking the producer.
//
// A line that fails — backend error or contract violation — yields an Update
// with Error set and the stream continues with the next line. Only a chain
// build failure ends the stream early, reported as a final error Update.
func (s *Service) AnalyzeLines(ctx context.Context, text string, level int) <-chan Update {
	updates := make(chan Update)

	go func() {
		defer close(updates)

		var lines []string
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			return
		}

		c, err := s.Chain(ctx)
		if err != nil {
			send(ctx, updates, Update{Progress: 100, Error: err.Error()})
			return
		}

		for i, line := range lines {
			u := Update{
				// Rounded up so the first update reports at least 1 even
				// when there are more than 100 lines; the last is exactly 100.
				Progress:     ((i+1)*100 + len(lines) - 1) / len(lines),
				OriginalText: line,
			}
			result, err := c.Analyze(ctx, line, level)
			switch {
			case err == nil:
				u.Analysis = result
				u.Rendered = Render(result, level)
			default:
				u.Error = err.Error()
				var malformed *MalformedResponseError
				if errors.As(err, &malformed) {
					u.RawOutput = malformed.Raw
				}
			}
			if !send(ctx, updates, u) {
				return
			}
		}
	}()

	return updates
}

func send(ctx context.Context, ch chan<- Update, u Update) bool {
	select {
	case ch <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
