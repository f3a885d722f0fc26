package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleCorpus = `1
基礎 第1級
是 (shì)
用於連接兩個名詞。
例句：他是學生。
//
2
基礎 第2級
把字句
將受詞提前，強調處置。
例句：請把門關上。
//
3
進階 第4*級
連…都…
表示強調，連最極端的情況也包括在內。
//
附錄
無級別的補充說明。
`

func TestParse_SplitsOnSeparator(t *testing.T) {
	t.Parallel()

	docs := Parse(sampleCorpus)
	if len(docs) != 4 {
		t.Fatalf("expected 4 documents, got %d", len(docs))
	}
}

func TestParse_ExtractsLevels(t *testing.T) {
	t.Parallel()

	docs := Parse(sampleCorpus)
	if len(docs) != 4 {
		t.Fatalf("expected 4 documents, got %d", len(docs))
	}

	wantLevels := []struct {
		level   int
		present bool
	}{
		{1, true},
		{2, true},
		{4, true}, // the asterisk in 第4*級 is ignored
		{0, false},
	}
	for i, want := range wantLevels {
		got := docs[i].Level
		if want.present {
			if got == nil {
				t.Errorf("docs[%d].Level = nil; want %d", i, want.level)
			} else if *got != want.level {
				t.Errorf("docs[%d].Level = %d; want %d", i, *got, want.level)
			}
		} else if got != nil {
			t.Errorf("docs[%d].Level = %d; want nil", i, *got)
		}
	}
}

func TestParse_CollapsesNewlines(t *testing.T) {
	t.Parallel()

	docs := Parse("基礎 第1級\n\n\n是 (shì)\n例句：他是學生。")
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	want := "基礎 第1級 是 (shì) 例句：他是學生。"
	if docs[0].Text != want {
		t.Errorf("Text = %q; want %q", docs[0].Text, want)
	}
}

func TestParse_DropsEmptyBlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty input", "", 0},
		{"only separators", "//\n//\n//", 0},
		{"whitespace blocks", "   \n//\n\t\n//\n基礎 第1級 是", 1},
		{"trailing separator", "基礎 第1級 是//", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Parse(tt.content); len(got) != tt.want {
				t.Errorf("Parse(%q) returned %d documents; want %d", tt.content, len(got), tt.want)
			}
		})
	}
}

func TestParse_FirstLevelTagWins(t *testing.T) {
	t.Parallel()

	docs := Parse("基礎 第2級 的句型也出現在 進階 第5級 的課文中")
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Level == nil || *docs[0].Level != 2 {
		t.Errorf("Level = %v; want 2", docs[0].Level)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte(sampleCorpus), 0o644); err != nil {
		t.Fatalf("write corpus file: %v", err)
	}

	docs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if len(docs) != 4 {
		t.Errorf("expected 4 documents, got %d", len(docs))
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestLoadFile_Empty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("//\n//"), 0o644); err != nil {
		t.Fatalf("write corpus file: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for corpus with no documents, got nil")
	}
}
