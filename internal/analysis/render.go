package analysis

import (
	"fmt"
	"strings"
)

// Render formats a [Result] as the human-readable explanation shown to the
// learner. It is a pure function of its inputs: fixed section order
// (Sentence, Grammar Explanation, then Additional Information when present),
// markdown emphasis on the section headings, no retrieval or backend access.
//
// userLevel is echoed in the no-match message so the learner sees which level
// the retrieval was scoped to.
func Render(r *Result, userLevel int) string {
	var out []string

	out = append(out,
		"1. **Sentence**:",
		fmt.Sprintf("   - English Translation: %s", r.Translation),
		fmt.Sprintf("   - **Zhuyin (Bopomofo)**: %s", r.Phonetics.Zhuyin),
		fmt.Sprintf("   - Hanyu Pinyin: %s", r.Phonetics.Pinyin),
	)

	out = append(out, "2. **Grammar Explanation**:")
	if r.Matched.Found {
		out = append(out,
			fmt.Sprintf("   - Level: %d", r.Matched.Level),
			fmt.Sprintf("   - Point: %s", r.Matched.GrammarPoint),
			fmt.Sprintf("   - Explanation: %s", r.Matched.Explanation),
		)
	} else {
		out = append(out, fmt.Sprintf("   - No matching grammar points found for Level %d.", userLevel))
	}

	if a := r.Additional; a != nil && a.Point != "" && !strings.EqualFold(a.Point, "none") {
		out = append(out,
			"3. **Additional Information**:",
			fmt.Sprintf("   - Point: %s", a.Point),
		)
		if a.Explanation != "" {
			out = append(out, fmt.Sprintf("   - Explanation: %s", a.Explanation))
		}
	}

	return strings.Join(out, "\n")
}
