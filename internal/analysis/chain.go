package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hantube/hantube/internal/index"
	"github.com/hantube/hantube/internal/observe"
	"github.com/hantube/hantube/internal/transcript/phonetic"
	"github.com/hantube/hantube/pkg/provider/llm"
	"github.com/hantube/hantube/pkg/types"
)

const (
	// defaultRetrievalK is how many grammar rules are retrieved per sentence.
	defaultRetrievalK = 5

	// defaultTemperature keeps the backend close to deterministic so the JSON
	// contract holds across calls.
	defaultTemperature = 0.1
)

// analysisPrompt is the fixed instruction sent per sentence. The retrieved
// rules are the only material the model may match against; an empty context
// block is sent as-is, and the rules oblige the model to answer found=false.
// Substitutions: level, context block, target sentence, level again in the
// schema example.
const analysisPrompt = `You are a **English-Speaking Professor of Chinese Linguistics**.
Your native language is English, and you explain Chinese grammar concepts to English speakers.

Your task is to analyze the "Target Sentence" using **STRICTLY AND ONLY** the provided "Retrieved Grammar Rules".

--- Retrieved Grammar Rules (Level %d) ---
%s
-----------------------------------------------

Target Sentence: "%s"

**PROFESSOR'S RULES**:
1. **Strict Matching**: If the Target Sentence does NOT clearly demonstrate a rule listed above, admit it. Set "found": false. Do not hallucinate connections.
2. **Language Protocol**:
   - **english_translation_of_sentence**: Must be in natural **English**.
   - **explanation_in_english**: Explain the grammar logic in **English** (as if lecturing to students).
   - **grammar_point_cn**: Use **Traditional Chinese** characters for the rule name.

Return JSON strictly:
{
  "english_translation_of_sentence": "English translation here...",
  "matched_grammar": {
      "found": true or false,
      "level": %d,
      "grammar_point_cn": "Pattern Name (Traditional Chinese)",
      "explanation_in_english": "Detailed explanation in English..."
  },
  "additional_info": {
      "point": "Any other key point (Traditional Chinese)",
      "explanation": "Brief note (English)"
  }
}`

// Chain runs the retrieve → generate → parse sequence for single sentences.
// It holds an immutable [index.Index] and is safe for concurrent use.
type Chain struct {
	llm         llm.Provider
	index       *index.Index
	k           int
	temperature float64
	logger      *slog.Logger
	metrics     *observe.Metrics
}

// ChainOption is a functional option for configuring a [Chain].
type ChainOption func(*Chain)

// WithRetrievalK overrides how many documents are retrieved per analysis.
func WithRetrievalK(k int) ChainOption {
	return func(c *Chain) {
		if k > 0 {
			c.k = k
		}
	}
}

// WithTemperature overrides the backend sampling temperature.
func WithTemperature(t float64) ChainOption {
	return func(c *Chain) { c.temperature = t }
}

// WithChainLogger sets the logger. Defaults to slog.Default.
func WithChainLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithChainMetrics sets the metrics instance used for per-sentence analysis
// and LLM latency histograms. Defaults to [observe.DefaultMetrics].
func WithChainMetrics(m *observe.Metrics) ChainOption {
	return func(c *Chain) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewChain builds a Chain over an already-constructed index.
func NewChain(provider llm.Provider, ix *index.Index, opts ...ChainOption) *Chain {
	c := &Chain{
		llm:         provider,
		index:       ix,
		k:           defaultRetrievalK,
		temperature: defaultTemperature,
		logger:      slog.Default(),
		metrics:     observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Analyze runs the full pipeline for one sentence at the given learner level.
//
// Retrieval and backend errors propagate to the caller. A backend response
// that is not valid JSON is returned as a *[MalformedResponseError]; the
// chain itself stays usable. Readings are computed locally whatever the
// backend did, so even a defaulted result carries correct phonetics.
func (c *Chain) Analyze(ctx context.Context, sentence string, level int) (*Result, error) {
	start := time.Now()
	defer func() {
		c.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds())
	}()

	matches, err := c.index.Search(ctx, sentence, c.k, &level)
	if err != nil {
		return nil, fmt.Errorf("retrieve grammar rules: %w", err)
	}
	c.logger.Debug("retrieved grammar rules", "level", level, "count", len(matches))

	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Document.Text
	}
	contextBlock := strings.Join(texts, "\n\n")

	llmStart := time.Now()
	resp, err := c.llm.Complete(ctx, llm.CompletionRequest{
		Messages: []types.Message{{
			Role:    "user",
			Content: fmt.Sprintf(analysisPrompt, level, contextBlock, sentence, level),
		}},
		Temperature: c.temperature,
	})
	c.metrics.LLMDuration.Record(ctx, time.Since(llmStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("generation backend: %w", err)
	}

	result, err := parseResponse(resp.Content, level)
	if err != nil {
		return nil, err
	}

	pinyinStr, zhuyinStr := phonetic.Sentence(sentence)
	result.Phonetics = Phonetics{Pinyin: pinyinStr, Zhuyin: zhuyinStr}
	return result, nil
}
