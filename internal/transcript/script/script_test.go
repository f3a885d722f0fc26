package script

import (
	"math"
	"testing"
)

func TestNormalize_SimplifiedToTraditional(t *testing.T) {
	t.Parallel()

	n, err := NewNormalizer()
	if err != nil {
		t.Fatalf("NewNormalizer returned error: %v", err)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simplified", "简体中文", "簡體中文"},
		{"already traditional", "繁體中文", "繁體中文"},
		{"mixed with latin", "我在学习Go语言", "我在學習Go語言"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := n.Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHanRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"all han", "今天天氣很好", 1.0},
		{"empty", "", 0.0},
		{"no han", "hello world!", 0.0},
		{"half han", "你好ab", 0.5},
		{"han with punctuation", "你好。", 2.0 / 3.0},
		{"music marker", "♪♪♪", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := HanRatio(tt.in); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("HanRatio(%q) = %f; want %f", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsHan(t *testing.T) {
	t.Parallel()

	for _, r := range "漢字簡体" {
		if !IsHan(r) {
			t.Errorf("IsHan(%q) = false; want true", r)
		}
	}
	for _, r := range "aZ1。！ ㄅ" {
		if IsHan(r) {
			t.Errorf("IsHan(%q) = true; want false", r)
		}
	}
}
