package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedResponseError reports that the generation backend returned text
// that is not valid JSON under the response contract. It carries the raw text
// verbatim so callers can surface it for diagnosis. This is a recoverable
// condition, not a pipeline failure; distinguish it with [errors.As].
type MalformedResponseError struct {
	// Raw is the backend's full response text, after fence stripping.
	Raw string

	// Err is the underlying JSON decode error.
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("analysis: malformed backend response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// responseBody mirrors the backend response contract with pointer fields so
// that omitted keys are distinguishable from zero values.
type responseBody struct {
	Translation *string `json:"english_translation_of_sentence"`
	Matched     *struct {
		Found        *bool   `json:"found"`
		Level        *int    `json:"level"`
		GrammarPoint *string `json:"grammar_point_cn"`
		Explanation  *string `json:"explanation_in_english"`
	} `json:"matched_grammar"`
	Additional *AdditionalInfo `json:"additional_info"`
}

// stripFences removes a markdown code-fence wrapper if the backend added one.
// Handles the ```json prefix and the trailing ``` independently since models
// sometimes emit only one of the two.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseResponse decodes a backend response into a [Result] without phonetics.
//
// Missing keys never fail the parse; they get neutral defaults: found=false,
// empty strings, and the requested user level when the backend omitted the
// matched level. A nil Additional means the backend reported nothing extra.
// Invalid JSON yields a *[MalformedResponseError] carrying raw verbatim.
func parseResponse(raw string, userLevel int) (*Result, error) {
	cleaned := stripFences(raw)

	var body responseBody
	if err := json.Unmarshal([]byte(cleaned), &body); err != nil {
		return nil, &MalformedResponseError{Raw: cleaned, Err: err}
	}

	r := &Result{
		Matched: MatchedGrammar{Level: userLevel},
	}
	if body.Translation != nil {
		r.Translation = *body.Translation
	}
	if m := body.Matched; m != nil {
		if m.Found != nil {
			r.Matched.Found = *m.Found
		}
		if m.Level != nil {
			r.Matched.Level = *m.Level
		}
		if m.GrammarPoint != nil {
			r.Matched.GrammarPoint = *m.GrammarPoint
		}
		if m.Explanation != nil {
			r.Matched.Explanation = *m.Explanation
		}
	}
	if a := body.Additional; a != nil && a.Point != "" {
		r.Additional = &AdditionalInfo{Point: a.Point, Explanation: a.Explanation}
	}
	return r, nil
}
