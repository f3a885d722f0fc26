// Package transcript implements the segment correction pipeline.
//
// Raw whisper output for Chinese audio is noisy: homophone substitutions,
// mixed Simplified/Traditional script, and the occasional hallucinated
// filler. The [Corrector] refines a transcribed recording in two passes:
//
//  1. Collection: every segment's text is normalised to Traditional script
//     and materialised, because pass 2 needs each segment's immediate
//     neighbors as context before any correction begins.
//  2. Contextual correction: each segment is rewritten by an LLM that sees
//     the previous and next segments, under strict no-translate, no-summarise
//     rules. Corrections whose length drifts more than half the original are
//     rolled back, and the result is normalised again in case the model
//     reintroduced Simplified characters.
//
// Segments that are mostly non-Han (embedded English, music markers) skip
// the LLM entirely. Per-segment backend failures keep the original text —
// a transcript is never aborted halfway.
//
// Corrected segments are emitted on a channel as they complete so callers
// can render progressive transcript growth.
package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hantube/hantube/internal/observe"
	"github.com/hantube/hantube/internal/transcript/phonetic"
	"github.com/hantube/hantube/internal/transcript/script"
	"github.com/hantube/hantube/pkg/provider/llm"
	"github.com/hantube/hantube/pkg/provider/stt"
	"github.com/hantube/hantube/pkg/types"
)

const (
	defaultTemperature = 0.1

	// defaultHanGate is the minimum fraction of Han characters a segment
	// needs before it is sent for LLM correction.
	defaultHanGate = 0.10

	// defaultMaxLengthDelta is the relative rune-length change beyond which
	// a correction is treated as hallucination and discarded.
	defaultMaxLengthDelta = 0.5
)

// correctionSystemPrompt instructs the model to repair a single subtitle
// segment using its neighbors as context.
const correctionSystemPrompt = `You are a subtitle correction assistant for Chinese-language videos.

You receive three consecutive subtitle segments from a speech-to-text system: the previous segment, the current segment, and the next segment. Your task is to fix transcription errors in the CURRENT segment only, using the neighbors as context.

Rules:
- Fix obvious homophone errors, wrong characters, and broken words.
- Use Traditional Chinese characters (繁體中文) only.
- NEVER translate the text into another language.
- NEVER summarise, shorten, or expand the content.
- NEVER merge in text from the previous or next segment.
- If the current segment is already correct, return it unchanged.

Respond with ONLY the corrected current segment. No explanations, no quotes, no markdown.`

// Segment is one corrected transcript segment. Timing is carried over from
// the source segment untouched; only the text is refined.
type Segment struct {
	// Start and End are the segment's offsets in the source audio.
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`

	// Text is the corrected, Traditional-normalised segment text.
	Text string `json:"text"`

	// Chars is the per-character phonetic annotation of Text, used for
	// ruby-text rendering. Non-Han characters carry empty readings.
	Chars []phonetic.CharAnnotation `json:"chars"`
}

// Update is emitted once per completed segment.
type Update struct {
	// Index is the zero-based position of this segment; Total is the number
	// of segments in the whole recording.
	Index int `json:"index"`
	Total int `json:"total"`

	// Segment is the freshly corrected segment.
	Segment Segment `json:"segment"`

	// Transcript is the cumulative corrected transcript so far: one line per
	// completed segment, each prefixed with a [MM:SS] start timestamp.
	Transcript string `json:"transcript"`
}

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithTemperature sets the LLM sampling temperature. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(c *Corrector) {
		c.temperature = temp
	}
}

// WithHanGate sets the minimum Han-character ratio below which a segment
// bypasses LLM correction. Default: 0.10.
func WithHanGate(ratio float64) Option {
	return func(c *Corrector) {
		c.hanGate = ratio
	}
}

// WithMetrics sets the metrics instance used for correction outcome counters
// and LLM latency. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Corrector) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger sets the logger used for per-segment diagnostics.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Corrector) {
		if l != nil {
			c.logger = l
		}
	}
}

// Corrector refines transcribed segments with an [llm.Provider]. It is safe
// for concurrent use; each Correct call runs an independent pipeline.
type Corrector struct {
	llm            llm.Provider
	normalizer     *script.Normalizer
	temperature    float64
	hanGate        float64
	maxLengthDelta float64
	logger         *slog.Logger
	metrics        *observe.Metrics
}

// New returns a new [Corrector] backed by the given provider and script
// normalizer.
func New(provider llm.Provider, normalizer *script.Normalizer, opts ...Option) *Corrector {
	c := &Corrector{
		llm:            provider,
		normalizer:     normalizer,
		temperature:    defaultTemperature,
		hanGate:        defaultHanGate,
		maxLengthDelta: defaultMaxLengthDelta,
		logger:         slog.Default(),
		metrics:        observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct runs the two-pass pipeline over segments and returns a channel
// that emits one Update per segment, in order. The channel is closed when
// the last segment is done or ctx is cancelled.
//
// Segments are corrected strictly in sequence because each correction uses
// its neighbors' normalised text as context. Early consumers may stop
// reading; cancelling ctx releases the producer.
func (c *Corrector) Correct(ctx context.Context, segments []stt.Segment) <-chan Update {
	updates := make(chan Update)

	go func() {
		defer close(updates)

		// Pass 1: normalise everything up front so pass 2 can hand the model
		// clean neighbor context.
		normalized := make([]string, len(segments))
		for i, seg := range segments {
			normalized[i] = c.normalize(seg.Text)
		}

		var lines []string
		for i, seg := range segments {
			text := c.correctSegment(ctx, normalized, i)
			if ctx.Err() != nil {
				return
			}

			corrected := Segment{
				Start: seg.Start,
				End:   seg.End,
				Text:  text,
				Chars: phonetic.Annotate(text),
			}
			lines = append(lines, fmt.Sprintf("[%s] %s", formatTimestamp(seg.Start), text))

			select {
			case updates <- Update{
				Index:      i,
				Total:      len(segments),
				Segment:    corrected,
				Transcript: strings.Join(lines, "\n"),
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates
}

// correctSegment produces the final text for segment i of the normalised
// sequence: gate, LLM rewrite, rollback check, re-normalisation. Every
// failure path degrades to the normalised original.
func (c *Corrector) correctSegment(ctx context.Context, normalized []string, i int) string {
	current := normalized[i]

	if script.HanRatio(current) < c.hanGate {
		c.metrics.RecordCorrection(ctx, "skipped")
		return current
	}

	var prev, next string
	if i > 0 {
		prev = normalized[i-1]
	}
	if i+1 < len(normalized) {
		next = normalized[i+1]
	}

	llmStart := time.Now()
	resp, err := c.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: correctionSystemPrompt,
		Temperature:  c.temperature,
		Messages: []types.Message{
			{Role: "user", Content: buildCorrectionMessage(prev, current, next)},
		},
	})
	c.metrics.LLMDuration.Record(ctx, time.Since(llmStart).Seconds())
	if err != nil {
		c.logger.Warn("segment correction failed, keeping original",
			"segment", i, "error", err)
		c.metrics.RecordCorrection(ctx, "failed")
		return current
	}

	corrected := strings.TrimSpace(resp.Content)
	if corrected == "" {
		c.metrics.RecordCorrection(ctx, "rolled_back")
		return current
	}

	if lengthDelta(current, corrected) > c.maxLengthDelta {
		c.logger.Warn("segment correction rolled back, length anomaly",
			"segment", i,
			"original_len", len([]rune(current)),
			"corrected_len", len([]rune(corrected)))
		c.metrics.RecordCorrection(ctx, "rolled_back")
		return current
	}

	c.metrics.RecordCorrection(ctx, "applied")

	// The model may reintroduce Simplified characters.
	return c.normalize(corrected)
}

// normalize converts text to Traditional script, falling back to the input
// when conversion fails.
func (c *Corrector) normalize(text string) string {
	out, err := c.normalizer.Normalize(text)
	if err != nil {
		c.logger.Warn("script normalisation failed", "error", err)
		return text
	}
	return out
}

// buildCorrectionMessage assembles the user message for one segment.
// Missing neighbors are rendered as the placeholder "(無)".
func buildCorrectionMessage(prev, current, next string) string {
	if prev == "" {
		prev = "(無)"
	}
	if next == "" {
		next = "(無)"
	}
	return fmt.Sprintf("Previous: %s\nCurrent: %s\nNext: %s", prev, current, next)
}

// lengthDelta returns the relative rune-length change from original to
// corrected. An empty original with non-empty corrected counts as maximal
// drift.
func lengthDelta(original, corrected string) float64 {
	n := len([]rune(original))
	m := len([]rune(corrected))
	if n == 0 {
		if m == 0 {
			return 0
		}
		return 1
	}
	d := m - n
	if d < 0 {
		d = -d
	}
	return float64(d) / float64(n)
}

// formatTimestamp renders an audio offset as MM:SS. Hours fold into the
// minute count, matching how subtitle progress is shown for long videos.
func formatTimestamp(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
