package vocab

import (
	"strings"
	"testing"
)

func TestSegment_GreedyLongestMatch(t *testing.T) {
	t.Parallel()

	e := NewExtractor(testStore(t))

	words := e.Segment("學生去圖書館")
	want := []string{"學生", "去", "圖書館"}
	if len(words) != len(want) {
		t.Fatalf("Segment = %v; want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("Segment[%d] = %q; want %q", i, words[i], want[i])
		}
	}
}

func TestSegment_ReproducesInput(t *testing.T) {
	t.Parallel()

	e := NewExtractor(testStore(t))
	for _, text := range []string{
		"學生和老師去圖書館",
		"Hello 你好 world",
		"無關的字元序列",
		"",
	} {
		if got := strings.Join(e.Segment(text), ""); got != text {
			t.Errorf("Segment(%q) concatenates to %q", text, got)
		}
	}
}

func TestExtract_LeveledWordsByFrequency(t *testing.T) {
	t.Parallel()

	e := NewExtractor(testStore(t))
	entries := e.Extract("學生和老師去圖書館,學生很開心。")

	want := []WordEntry{
		{Word: "圖書館", Level: 4, Frequency: 1},
		{Word: "老師", Level: 3, Frequency: 1},
		{Word: "學生", Level: 2, Frequency: 2},
	}
	if len(entries) != len(want) {
		t.Fatalf("Extract = %+v; want %+v", entries, want)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entries[%d] = %+v; want %+v", i, entries[i], want[i])
		}
	}
}

func TestExtract_SkipsSingleCharacterWords(t *testing.T) {
	t.Parallel()

	// 和 is in the database at level 1 but too short to be a card word.
	e := NewExtractor(testStore(t))
	for _, entry := range e.Extract("學生和老師") {
		if entry.Word == "和" {
			t.Error("single-character word extracted")
		}
	}
}

func TestExtract_Empty(t *testing.T) {
	t.Parallel()

	e := NewExtractor(testStore(t))
	if got := e.Extract(""); got != nil {
		t.Errorf("Extract(\"\") = %+v; want nil", got)
	}
	if got := e.Extract("abc def"); len(got) != 0 {
		t.Errorf("Extract(latin) = %+v; want empty", got)
	}
}
