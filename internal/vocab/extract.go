package vocab

import (
	"sort"

	"github.com/hantube/hantube/internal/transcript/script"
)

// WordEntry is one leveled word found in a text, with its occurrence count.
type WordEntry struct {
	Word      string `json:"word"`
	Level     int    `json:"level"`
	Frequency int    `json:"frequency"`
}

// Extractor segments text against the COCT lexicon and reports the leveled
// words it contains.
type Extractor struct {
	store *Store
}

// NewExtractor builds an Extractor over the given database.
func NewExtractor(store *Store) *Extractor {
	return &Extractor{store: store}
}

// Segment splits text into words by greedy longest match against the
// database lexicon. Runs of characters with no database entry come through
// as single-rune tokens, so the concatenation of all tokens reproduces the
// input.
func (e *Extractor) Segment(text string) []string {
	runes := []rune(text)
	maxLen := e.store.longestWord()

	var words []string
	for i := 0; i < len(runes); {
		matched := 1
		limit := min(maxLen, len(runes)-i)
		for n := limit; n >= 2; n-- {
			if _, ok := e.store.Lookup(string(runes[i : i+n])); ok {
				matched = n
				break
			}
		}
		words = append(words, string(runes[i:i+matched]))
		i += matched
	}
	return words
}

// Extract segments text and returns each database word of two or more Han
// characters with its level and frequency, ordered by level then frequency,
// both descending. Ties fall back to lexicographic word order so results
// are reproducible.
func (e *Extractor) Extract(text string) []WordEntry {
	if text == "" {
		return nil
	}

	counts := make(map[string]*WordEntry)
	var order []string
	for _, word := range e.Segment(text) {
		if len([]rune(word)) < 2 || !allHan(word) {
			continue
		}
		level, ok := e.store.Lookup(word)
		if !ok {
			continue
		}
		if entry, seen := counts[word]; seen {
			entry.Frequency++
			continue
		}
		counts[word] = &WordEntry{Word: word, Level: level, Frequency: 1}
		order = append(order, word)
	}

	entries := make([]WordEntry, 0, len(order))
	for _, w := range order {
		entries = append(entries, *counts[w])
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Level != entries[j].Level {
			return entries[i].Level > entries[j].Level
		}
		if entries[i].Frequency != entries[j].Frequency {
			return entries[i].Frequency > entries[j].Frequency
		}
		return entries[i].Word < entries[j].Word
	})
	return entries
}

func allHan(word string) bool {
	for _, r := range word {
		if !script.IsHan(r) {
			return false
		}
	}
	return true
}
