// Package vocab provides the leveled vocabulary services: the COCT word
// database, dictionary-based word extraction from transcripts, LLM-generated
// word cards with corpus example lookup, and sentence simplification.
package vocab

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"
)

// Store is the in-memory COCT word-level database. Immutable after load and
// safe for concurrent reads.
type Store struct {
	levels  map[string]int
	maxRune int
}

// wordInfo is one database entry in object form. Entries may also be bare
// numbers; both shapes carry the same level value.
type wordInfo struct {
	Level int `json:"level"`
}

// LoadStore reads a COCT database file: a JSON object mapping each word to
// either a bare level number or an object with a "level" key.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word database %s: %w", path, err)
	}
	return ParseStore(data)
}

// ParseStore decodes a COCT database from raw JSON.
func ParseStore(data []byte) (*Store, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode word database: %w", err)
	}

	s := &Store{levels: make(map[string]int, len(raw))}
	for word, entry := range raw {
		var level int
		if err := json.Unmarshal(entry, &level); err != nil {
			var info wordInfo
			if err := json.Unmarshal(entry, &info); err != nil {
				return nil, fmt.Errorf("decode word database entry %q: %w", word, err)
			}
			level = info.Level
		}
		s.levels[word] = level
		if n := utf8.RuneCountInString(word); n > s.maxRune {
			s.maxRune = n
		}
	}
	return s, nil
}

// Len reports the number of words in the database.
func (s *Store) Len() int { return len(s.levels) }

// Lookup returns the official level of word and whether it is in the
// database.
func (s *Store) Lookup(word string) (int, bool) {
	level, ok := s.levels[word]
	return level, ok
}

// longestWord is the rune length of the longest database entry, used to
// bound the segmentation window.
func (s *Store) longestWord() int { return s.maxRune }
