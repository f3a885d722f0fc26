package vocab

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hantube/hantube/internal/transcript/phonetic"
	"github.com/hantube/hantube/pkg/provider/llm"
	"github.com/hantube/hantube/pkg/types"
)

// cardTemperature keeps card generation stable enough to honour the JSON
// contract while leaving some variety in example sentences.
const cardTemperature = 0.2

// Card is a generated vocabulary card. Every field is always populated
// except SimplerSynonym, which is nil when no simpler word exists.
type Card struct {
	Word                 string  `json:"word"`
	Level                string  `json:"level"`
	Translation          string  `json:"translation"`
	DefinitionEN         string  `json:"definition_en"`
	DefinitionCH         string  `json:"definition_ch"`
	Example              string  `json:"example"`
	ExampleEN            string  `json:"example_en"`
	SimplerSynonym       *string `json:"simpler_synonym"`
	SimplerSynonymPinyin string  `json:"simpler_synonym_pinyin"`
	Pinyin               string  `json:"pinyin"`
	Zhuyin               string  `json:"zhuyin"`
}

// Service generates word cards and simplified sentences through the LLM
// backend, consulting the COCT database for official levels and the grammar
// corpus for real example sentences.
type Service struct {
	store         *Store
	llm           llm.Provider
	exampleCorpus string
	temperature   float64
	logger        *slog.Logger
}

// ServiceOption is a functional option for configuring a [Service].
type ServiceOption func(*Service)

// WithExampleCorpus supplies the raw grammar corpus text searched for real
// example sentences. Without it, cards always use model-invented examples.
func WithExampleCorpus(content string) ServiceOption {
	return func(s *Service) { s.exampleCorpus = content }
}

// WithTemperature overrides the backend sampling temperature.
func WithTemperature(t float64) ServiceOption {
	return func(s *Service) { s.temperature = t }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService wires a vocabulary Service over the word database and LLM
// backend.
func NewService(store *Store, provider llm.Provider, opts ...ServiceOption) *Service {
	s := &Service{
		store:       store,
		llm:         provider,
		temperature: cardTemperature,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// cardBody mirrors the backend card contract. Empty strings count as
// missing and receive defaults, matching how unreliable backends blank out
// fields they cannot fill.
type cardBody struct {
	Level                string  `json:"level"`
	Translation          string  `json:"translation"`
	DefinitionEN         string  `json:"definition_en"`
	DefinitionCH         string  `json:"definition_ch"`
	Example              string  `json:"example"`
	ExampleEN            string  `json:"example_en"`
	SimplerSynonym       *string `json:"simpler_synonym"`
	SimplerSynonymPinyin string  `json:"simpler_synonym_pinyin"`
}

// WordCard generates a vocabulary card for word. The word's readings come
// from the local annotator; the official COCT level, when known, overrides
// whatever level the model estimates.
func (s *Service) WordCard(ctx context.Context, word string) (*Card, error) {
	example := findExample(s.exampleCorpus, word)
	if example != "" {
		s.logger.Debug("found corpus example for word card", "word", word, "example", example)
	}

	officialLevel := ""
	if level, ok := s.store.Lookup(word); ok {
		officialLevel = fmt.Sprintf("Level %d", level)
	}

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Messages: []types.Message{{
			Role:    "user",
			Content: buildCardPrompt(word, example, officialLevel),
		}},
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("word card backend: %w", err)
	}

	content := extractFencedJSON(resp.Content)
	var body cardBody
	if err := json.Unmarshal([]byte(content), &body); err != nil {
		return nil, fmt.Errorf("decode word card response %q: %w", content, err)
	}

	card := &Card{
		Word:                 word,
		Level:                body.Level,
		Translation:          body.Translation,
		DefinitionEN:         body.DefinitionEN,
		DefinitionCH:         body.DefinitionCH,
		Example:              body.Example,
		ExampleEN:            body.ExampleEN,
		SimplerSynonym:       body.SimplerSynonym,
		SimplerSynonymPinyin: body.SimplerSynonymPinyin,
	}
	card.Pinyin, card.Zhuyin = phonetic.Sentence(word)
	applyCardDefaults(card, officialLevel)
	return card, nil
}

// applyCardDefaults fills blank fields with their documented neutral values.
func applyCardDefaults(c *Card, officialLevel string) {
	if c.Level == "" {
		if officialLevel != "" {
			c.Level = officialLevel
		} else {
			c.Level = "General"
		}
	}
	if c.Translation == "" {
		c.Translation = c.Word
	}
	if c.DefinitionEN == "" {
		c.DefinitionEN = "Definition not available."
	}
	if c.DefinitionCH == "" {
		c.DefinitionCH = "暫無釋義"
	}
	if c.Example == "" {
		c.Example = "暫無例句"
	}
	if c.ExampleEN == "" {
		c.ExampleEN = "No example translation available."
	}
	if c.SimplerSynonym != nil && *c.SimplerSynonym == "" {
		c.SimplerSynonym = nil
	}
}

// buildCardPrompt assembles the card instruction. The corpus example and
// official level change which constraints the model receives.
func buildCardPrompt(word, example, officialLevel string) string {
	exampleInstruction := "Create a simple, beginner-friendly sentence using this word in Traditional Chinese."
	if example != "" {
		exampleInstruction = fmt.Sprintf(`I found a corpus sentence: "%s". Use this sentence as the "example" ONLY IF it is a complete, meaningful sentence. If it is fragmented, weird, or Simplified Chinese, REWRITE it into natural Traditional Chinese.`, example)
	}

	levelInstruction := `- "level": Estimate TOCFL level.`
	if officialLevel != "" {
		levelInstruction = fmt.Sprintf(`- "level": Set to "%s" (Strict official level).`, officialLevel)
	}

	return fmt.Sprintf(`You are a professional Chinese language teacher.
Create a vocabulary card for: 「%s」.

%s

**STRICT CONSTRAINT**:
1. All Chinese output MUST be in **Traditional Chinese (繁體中文)**.
2. Ensure "example_en" is provided.

You must return strict JSON with these keys:
- "word": The Chinese word.
%s
- "translation": The English translation.
- "definition_en": English definition.
- "definition_ch": Traditional Chinese definition.
- "example": The example sentence (Traditional Chinese).
- "example_en": English translation of the example.
- "simpler_synonym": A simpler synonym (Traditional Chinese) or null.
- "simpler_synonym_pinyin": Pinyin for the synonym.`, word, exampleInstruction, levelInstruction)
}

// extractFencedJSON returns the content of a ```json fence when present,
// otherwise the trimmed input.
func extractFencedJSON(s string) string {
	if _, after, ok := strings.Cut(s, "```json"); ok {
		if inner, _, ok := strings.Cut(after, "```"); ok {
			return strings.TrimSpace(inner)
		}
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(s)
}

var (
	digitsOnly     = regexp.MustCompile(`^\d+$`)
	numberedPrefix = regexp.MustCompile(`^\d+\.|^[A-Z]\.`)
	speakerPrefix  = regexp.MustCompile(`^[A-Z]：`)
)

// findExample scans the raw grammar corpus for a natural sentence containing
// word. Level-marker lines, bare numbers, and numbered list items are
// skipped; a leading speaker tag is stripped. Sentences of 8–30 characters
// are preferred; within the pool the pick is random so repeated cards vary.
func findExample(corpusText, word string) string {
	if corpusText == "" || word == "" {
		return ""
	}

	var candidates []string
	for _, block := range strings.Split(corpusText, "//") {
		if !strings.Contains(block, word) {
			continue
		}
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			n := utf8.RuneCountInString(line)
			if n < 6 || n > 60 {
				continue
			}
			if strings.Contains(line, "第") && strings.Contains(line, "級") {
				continue
			}
			if digitsOnly.MatchString(line) || numberedPrefix.MatchString(line) {
				continue
			}
			if !hasSentenceEnd(line) {
				continue
			}
			line = speakerPrefix.ReplaceAllString(line, "")
			if strings.Contains(line, word) {
				candidates = append(candidates, line)
			}
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	var ideal []string
	for _, c := range candidates {
		if n := utf8.RuneCountInString(c); n >= 8 && n <= 30 {
			ideal = append(ideal, c)
		}
	}
	if len(ideal) > 0 {
		return ideal[rand.IntN(len(ideal))]
	}
	return candidates[rand.IntN(len(candidates))]
}

func hasSentenceEnd(line string) bool {
	return strings.HasSuffix(line, "。") ||
		strings.HasSuffix(line, "！") ||
		strings.HasSuffix(line, "？")
}
