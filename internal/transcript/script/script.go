// Package script normalises Chinese text to Traditional script and measures
// how much of a string is Han text at all.
//
// Whisper models emit a mix of Simplified and Traditional characters
// depending on training data and the audio itself. The transcript pipeline
// normalises every segment to Traditional before any further processing so
// that correction, phonetics, and vocabulary lookups all operate on one
// script. The Han ratio is used as a cheap gate: segments that are mostly
// non-Han (music markers, foreign speech, noise transcribed as punctuation)
// skip LLM correction entirely.
package script

import (
	"fmt"
	"unicode"

	"github.com/longbridgeapp/opencc"
)

// Normalizer converts Simplified Chinese text to Traditional.
// It is safe for concurrent use.
type Normalizer struct {
	cc *opencc.OpenCC
}

// NewNormalizer creates a Normalizer backed by the OpenCC s2t conversion
// tables.
func NewNormalizer() (*Normalizer, error) {
	cc, err := opencc.New("s2t")
	if err != nil {
		return nil, fmt.Errorf("script: init opencc s2t: %w", err)
	}
	return &Normalizer{cc: cc}, nil
}

// Normalize converts any Simplified characters in text to their Traditional
// equivalents. Text that is already Traditional passes through unchanged.
func (n *Normalizer) Normalize(text string) (string, error) {
	out, err := n.cc.Convert(text)
	if err != nil {
		return "", fmt.Errorf("script: convert: %w", err)
	}
	return out, nil
}

// IsHan reports whether r is a Han character.
func IsHan(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// HanRatio returns the fraction of runes in text that are Han characters,
// in [0, 1]. The empty string has ratio 0.
func HanRatio(text string) float64 {
	var total, han int
	for _, r := range text {
		total++
		if IsHan(r) {
			han++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(han) / float64(total)
}
