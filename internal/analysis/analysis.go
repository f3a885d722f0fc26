// Package analysis implements the retrieval-augmented grammar analysis used to
// explain learner sentences against the curated grammar corpus.
//
// The pipeline per sentence: a level-filtered similarity search over the
// [index.Index] retrieves candidate grammar rules, the rules and sentence are
// assembled into a fixed professor-persona instruction, the LLM backend is
// invoked, and its response is decoded against a strict JSON contract. Pinyin
// and zhuyin readings are computed locally and never go through the backend.
//
// [Service] owns the expensive parts — corpus load, index build-or-load, chain
// construction — and guarantees they run at most once per process, with
// concurrent first callers serialized. Request handlers receive a *Service and
// call [Service.Analyze] or [Service.AnalyzeLines]; nothing in this package is
// ambient global state.
package analysis

// MatchedGrammar is the grammar-point match reported by the backend.
// When no retrieved rule applies to the sentence, Found is false and the
// remaining fields describe nothing.
type MatchedGrammar struct {
	Found        bool   `json:"found"`
	Level        int    `json:"level"`
	GrammarPoint string `json:"grammar_point_cn"`
	Explanation  string `json:"explanation_in_english"`
}

// AdditionalInfo is an optional secondary observation about the sentence,
// outside the matched grammar point.
type AdditionalInfo struct {
	Point       string `json:"point"`
	Explanation string `json:"explanation"`
}

// Phonetics holds the locally computed readings of the analyzed sentence,
// one space-joined token per character.
type Phonetics struct {
	Pinyin string `json:"pinyin"`
	Zhuyin string `json:"zhuyin"`
}

// Result is a complete sentence analysis. Every field is always populated:
// keys the backend omitted are filled with their documented defaults during
// parsing, Additional is nil when the backend reported nothing extra, and
// Phonetics comes from the local annotator.
type Result struct {
	Translation string          `json:"english_translation_of_sentence"`
	Matched     MatchedGrammar  `json:"matched_grammar"`
	Additional  *AdditionalInfo `json:"additional_info,omitempty"`
	Phonetics   Phonetics       `json:"phonetics"`
}
