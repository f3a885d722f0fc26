// Package phonetic annotates Chinese text with pinyin and zhuyin readings.
//
// Pinyin comes from github.com/mozillazg/go-pinyin; zhuyin is derived from
// the tone-numbered pinyin of each character through the standard
// initial/final correspondence tables. Non-Han characters carry no reading.
package phonetic

import (
	"strings"

	gopinyin "github.com/mozillazg/go-pinyin"

	"github.com/hantube/hantube/internal/transcript/script"
)

// CharAnnotation is the phonetic reading of a single character.
type CharAnnotation struct {
	// Char is the character itself.
	Char string `json:"char"`

	// Pinyin is the tone-marked Hanyu Pinyin reading (e.g. "hǎo"), or ""
	// for non-Han characters and characters with no known reading.
	Pinyin string `json:"pinyin"`

	// Zhuyin is the bopomofo reading (e.g. "ㄏㄠˇ"), or "" when the character
	// has no pinyin reading to derive it from.
	Zhuyin string `json:"zhuyin"`
}

var (
	toneArgs  = gopinyin.NewArgs()
	tone3Args = gopinyin.NewArgs()
)

func init() {
	toneArgs.Style = gopinyin.Tone
	tone3Args.Style = gopinyin.Tone3
}

// Annotate returns a per-character phonetic annotation for text. Every rune
// of the input appears in the result in order; non-Han runes get empty
// readings.
func Annotate(text string) []CharAnnotation {
	anns := make([]CharAnnotation, 0, len([]rune(text)))
	for _, r := range text {
		ann := CharAnnotation{Char: string(r)}
		if script.IsHan(r) {
			if py := gopinyin.SinglePinyin(r, toneArgs); len(py) > 0 {
				ann.Pinyin = py[0]
			}
			if py3 := gopinyin.SinglePinyin(r, tone3Args); len(py3) > 0 {
				ann.Zhuyin = pinyinToZhuyin(py3[0])
			}
		}
		anns = append(anns, ann)
	}
	return anns
}

// Sentence returns whole-sentence pinyin and zhuyin strings, one
// space-separated element per character. Non-Han characters appear verbatim
// in both strings, mirroring how readings are displayed alongside mixed text.
func Sentence(text string) (pinyinStr, zhuyinStr string) {
	var ps, zs []string
	for _, ann := range Annotate(text) {
		p, z := ann.Pinyin, ann.Zhuyin
		if p == "" {
			p = ann.Char
		}
		if z == "" {
			z = ann.Char
		}
		ps = append(ps, p)
		zs = append(zs, z)
	}
	return strings.Join(ps, " "), strings.Join(zs, " ")
}
