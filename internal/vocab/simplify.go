package vocab

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hantube/hantube/pkg/provider/llm"
	"github.com/hantube/hantube/pkg/types"
)

// Change records one vocabulary substitution made while simplifying a
// sentence.
type Change struct {
	HardWord   string `json:"hard_word"`
	SimpleWord string `json:"simple_word"`
}

// Simplification is a beginner-level rewrite of a sentence.
type Simplification struct {
	Original           string   `json:"original"`
	Simplified         string   `json:"simplified"`
	EnglishTranslation string   `json:"english_translation"`
	Changes            []Change `json:"changes"`
}

// simplifyPrompt rewrites a sentence for a Level 2 learner in Taiwanese
// Mandarin. Substitutions: target sentence, then the same sentence echoed
// in the schema example.
const simplifyPrompt = `You are a **Taiwanese Mandarin Teacher (台灣華語教師)** who is also fluent in English.

Task: Rewrite the following sentence for a Level 2 student (beginner).
Target Sentence: "%s"

**TEACHER'S GUIDELINES**:
1. **Authenticity**: Use **Traditional Chinese (繁體中文)** and **Taiwanese vocabulary** (e.g., use "計程車" not "出租車", "影片" not "視頻").
2. **Meaning**: Keep the original meaning. Do NOT change entities (e.g., keep "檢方/Prosecutors", do not change to "警方/Police").
3. **Translation**: You MUST provide an English translation for the simplified sentence.

Return strict JSON:
{
    "original": "%s",
    "simplified": "The simplified sentence in Traditional Chinese",
    "english_translation": "The English translation of the SIMPLIFIED sentence",
    "changes": [ {"hard_word": "original", "simple_word": "simple"} ]
}`

// Simplify rewrites text for a beginner, reporting which words were
// exchanged. The returned Original is always the input text regardless of
// what the backend echoed.
func (s *Service) Simplify(ctx context.Context, text string) (*Simplification, error) {
	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Messages: []types.Message{{
			Role:    "user",
			Content: fmt.Sprintf(simplifyPrompt, text, text),
		}},
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("simplify backend: %w", err)
	}

	content := extractFencedJSON(resp.Content)
	var result Simplification
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("decode simplification response %q: %w", content, err)
	}
	result.Original = text
	return &result, nil
}
