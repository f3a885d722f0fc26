package phonetic

import "strings"

// Zhuyin (bopomofo) is derived from tone-numbered pinyin: the syllable is
// split into initial and final, each mapped through the standard
// correspondence tables, and the tone mark appended (or, for the neutral
// tone, the dot prefixed).

// wholeSyllables are pinyin syllables that map to a single zhuyin symbol
// without an initial/final split.
var wholeSyllables = map[string]string{
	"zhi": "ㄓ", "chi": "ㄔ", "shi": "ㄕ", "ri": "ㄖ",
	"zi": "ㄗ", "ci": "ㄘ", "si": "ㄙ",
	"er": "ㄦ", "r": "ㄦ",
	"o": "ㄛ", "e": "ㄜ", "a": "ㄚ", "ai": "ㄞ", "ei": "ㄟ",
	"ao": "ㄠ", "ou": "ㄡ", "an": "ㄢ", "en": "ㄣ",
	"ang": "ㄤ", "eng": "ㄥ",
}

// initials maps pinyin initials to zhuyin, longest spellings first in the
// matcher below.
var initials = map[string]string{
	"zh": "ㄓ", "ch": "ㄔ", "sh": "ㄕ",
	"b": "ㄅ", "p": "ㄆ", "m": "ㄇ", "f": "ㄈ",
	"d": "ㄉ", "t": "ㄊ", "n": "ㄋ", "l": "ㄌ",
	"g": "ㄍ", "k": "ㄎ", "h": "ㄏ",
	"j": "ㄐ", "q": "ㄑ", "x": "ㄒ",
	"r": "ㄖ", "z": "ㄗ", "c": "ㄘ", "s": "ㄙ",
}

// finals maps normalised pinyin finals (with ü written as "v") to zhuyin.
var finals = map[string]string{
	"a": "ㄚ", "o": "ㄛ", "e": "ㄜ", "i": "ㄧ", "u": "ㄨ", "v": "ㄩ",
	"ai": "ㄞ", "ei": "ㄟ", "ao": "ㄠ", "ou": "ㄡ",
	"an": "ㄢ", "en": "ㄣ", "ang": "ㄤ", "eng": "ㄥ", "ong": "ㄨㄥ",
	"ia": "ㄧㄚ", "ie": "ㄧㄝ", "iao": "ㄧㄠ", "iu": "ㄧㄡ", "iou": "ㄧㄡ",
	"ian": "ㄧㄢ", "in": "ㄧㄣ", "iang": "ㄧㄤ", "ing": "ㄧㄥ", "iong": "ㄩㄥ",
	"ua": "ㄨㄚ", "uo": "ㄨㄛ", "uai": "ㄨㄞ", "ui": "ㄨㄟ", "uei": "ㄨㄟ",
	"uan": "ㄨㄢ", "un": "ㄨㄣ", "uen": "ㄨㄣ", "uang": "ㄨㄤ", "ueng": "ㄨㄥ",
	"ve": "ㄩㄝ", "van": "ㄩㄢ", "vn": "ㄩㄣ",
}

// toneMarks maps tone numbers to zhuyin tone marks. Tone 1 is unmarked; the
// neutral tone (0 or 5) is written as a leading dot.
var toneMarks = map[byte]string{
	'2': "ˊ", '3': "ˇ", '4': "ˋ",
}

// pinyinToZhuyin converts a single tone-numbered pinyin syllable (e.g.
// "zhong1", "lv4", "de5") to zhuyin. Returns "" for syllables it cannot
// interpret.
func pinyinToZhuyin(syllable string) string {
	s := strings.ToLower(strings.TrimSpace(syllable))
	if s == "" {
		return ""
	}

	// Peel off the tone digit.
	var tone byte = '1'
	if last := s[len(s)-1]; last >= '0' && last <= '5' {
		tone = last
		s = s[:len(s)-1]
	}
	if s == "" {
		return ""
	}

	// Normalise ü spellings to "v".
	s = strings.ReplaceAll(s, "ü", "v")
	s = strings.ReplaceAll(s, "u:", "v")

	body, ok := wholeSyllables[s]
	if !ok {
		body = splitSyllable(s)
	}
	if body == "" {
		return ""
	}

	if tone == '0' || tone == '5' {
		return "˙" + body
	}
	return body + toneMarks[tone]
}

// splitSyllable maps an initial+final pinyin syllable to zhuyin symbols.
func splitSyllable(s string) string {
	// y/w spellings are orthographic stand-ins for the i/u/ü medials.
	switch {
	case s == "yu":
		s = "v"
	case strings.HasPrefix(s, "yu"):
		s = "v" + s[2:]
	case s == "yi":
		s = "i"
	case strings.HasPrefix(s, "yi"):
		s = "i" + s[2:]
	case s == "you":
		s = "iu"
	case strings.HasPrefix(s, "y"):
		s = "i" + s[1:]
	case s == "wu":
		s = "u"
	case strings.HasPrefix(s, "w"):
		s = "u" + s[1:]
	}

	var initial, rest string
	if len(s) >= 2 {
		if z, ok := initials[s[:2]]; ok {
			initial, rest = z, s[2:]
		}
	}
	if initial == "" {
		if z, ok := initials[s[:1]]; ok {
			initial, rest = z, s[1:]
		} else {
			rest = s
		}
	}

	// After ㄐㄑㄒ the "u" spelling stands for ü.
	if initial == "ㄐ" || initial == "ㄑ" || initial == "ㄒ" {
		if strings.HasPrefix(rest, "u") {
			rest = "v" + rest[1:]
		}
	}

	if rest == "" {
		return initial
	}
	final, ok := finals[rest]
	if !ok {
		return ""
	}
	return initial + final
}
