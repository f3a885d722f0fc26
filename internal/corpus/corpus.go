// Package corpus loads and parses the grammar corpus file.
//
// The corpus is a plain-text file of grammar point descriptions separated by
// lines containing the literal marker "//". Each block describes one grammar
// point and usually carries a TOCFL-style level tag such as "基礎 第1級" or
// "進階 第4*級"; the numeric level is extracted into document metadata so the
// retrieval layer can restrict results to a learner's level.
package corpus

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// separator splits the corpus file into grammar point blocks.
const separator = "//"

var (
	// levelPattern matches level tags like "基礎 第1級", "基礎 第1*級", "進階 第4級".
	// The captured digits are the numeric level.
	levelPattern = regexp.MustCompile(`(基礎|進階)\s+第(\d+)\*?級`)

	// newlineRuns collapses any run of newlines into a single space so each
	// document embeds as one continuous line of text.
	newlineRuns = regexp.MustCompile(`\n+`)
)

// Document is a single parsed grammar point.
type Document struct {
	// Text is the cleaned grammar point description: block text with newline
	// runs collapsed to single spaces and surrounding whitespace trimmed.
	Text string `json:"text"`

	// Level is the numeric TOCFL-style level extracted from the block, or nil
	// when the block carries no recognisable level tag. Unleveled documents
	// stay in the corpus but are excluded from level-filtered retrieval.
	Level *int `json:"level,omitempty"`
}

// Parse splits raw corpus content into documents.
//
// Blocks are delimited by the "//" marker. Empty blocks are dropped. A level
// tag anywhere inside a block sets the document's Level; the first match wins.
func Parse(content string) []Document {
	chunks := strings.Split(content, separator)

	docs := make([]Document, 0, len(chunks))
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}

		var level *int
		if m := levelPattern.FindStringSubmatch(chunk); m != nil {
			if n, err := strconv.Atoi(m[2]); err == nil {
				level = &n
			}
		}

		text := strings.TrimSpace(newlineRuns.ReplaceAllString(chunk, " "))
		if text == "" {
			continue
		}

		docs = append(docs, Document{Text: text, Level: level})
	}
	return docs
}

// LoadFile reads the corpus file at path and parses it into documents.
func LoadFile(path string) ([]Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %q: %w", path, err)
	}
	docs := Parse(string(content))
	if len(docs) == 0 {
		return nil, fmt.Errorf("corpus: %q contains no documents", path)
	}
	return docs, nil
}
