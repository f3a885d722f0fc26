package vocab

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hantube/hantube/pkg/provider/llm"
	llmmock "github.com/hantube/hantube/pkg/provider/llm/mock"
)

const exampleCorpus = `基礎 第2級
學生的介紹。
1. 學生是名詞。
A：學生們每天都去學校上課。
學生
12345
他是一個認真的學生,老師們都很喜歡他,因為他每天放學以後都會留在學校的圖書館裡面複習功課,從來不缺席。
//
進階 第4級
圖書館在學校旁邊。
`

func TestFindExample(t *testing.T) {
	t.Parallel()

	got := findExample(exampleCorpus, "學生")
	// The only acceptable candidate in the preferred 8–30 character band is
	// the dialogue line, with its speaker tag stripped.
	if got != "學生們每天都去學校上課。" {
		t.Errorf("findExample = %q", got)
	}
}

func TestFindExample_Filters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		word string
		want string
	}{
		{"absent word", "貓咪", ""},
		{"word only in skipped lines", "名詞", ""},
		{"different block", "旁邊", "圖書館在學校旁邊。"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := findExample(exampleCorpus, tt.word); got != tt.want {
				t.Errorf("findExample(%q) = %q; want %q", tt.word, got, tt.want)
			}
		})
	}

	if got := findExample("", "學生"); got != "" {
		t.Errorf("findExample with no corpus = %q; want empty", got)
	}
}

func TestWordCard_OfficialLevelAndReadings(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{
			"level": "Level 2",
			"translation": "student",
			"definition_en": "A person who studies.",
			"definition_ch": "在學校學習的人。",
			"example": "我是學生。",
			"example_en": "I am a student.",
			"simpler_synonym": null,
			"simpler_synonym_pinyin": ""
		}`},
	}
	svc := NewService(testStore(t), p, WithExampleCorpus(exampleCorpus))

	card, err := svc.WordCard(context.Background(), "學生")
	if err != nil {
		t.Fatalf("WordCard returned error: %v", err)
	}

	if card.Word != "學生" || card.Translation != "student" {
		t.Errorf("card = %+v", card)
	}
	if card.Pinyin == "" || card.Zhuyin == "" {
		t.Errorf("readings not populated: pinyin=%q zhuyin=%q", card.Pinyin, card.Zhuyin)
	}
	if card.SimplerSynonym != nil {
		t.Errorf("SimplerSynonym = %v; want nil", *card.SimplerSynonym)
	}

	prompt := p.CompleteCalls[0].Req.Messages[0].Content
	if !strings.Contains(prompt, `Set to "Level 2" (Strict official level)`) {
		t.Errorf("prompt missing official level constraint:\n%s", prompt)
	}
	if !strings.Contains(prompt, "I found a corpus sentence") {
		t.Errorf("prompt missing corpus example instruction:\n%s", prompt)
	}
	if p.CompleteCalls[0].Req.Temperature != 0.2 {
		t.Errorf("Temperature = %v; want 0.2", p.CompleteCalls[0].Req.Temperature)
	}
}

func TestWordCard_UnknownWordEstimatesLevel(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{}`},
	}
	svc := NewService(testStore(t), p)

	card, err := svc.WordCard(context.Background(), "貓咪")
	if err != nil {
		t.Fatalf("WordCard returned error: %v", err)
	}

	prompt := p.CompleteCalls[0].Req.Messages[0].Content
	if !strings.Contains(prompt, "Estimate TOCFL level.") {
		t.Errorf("prompt missing estimate instruction:\n%s", prompt)
	}
	if !strings.Contains(prompt, "beginner-friendly sentence") {
		t.Errorf("prompt missing invented-example instruction:\n%s", prompt)
	}
	if card.Level != "General" {
		t.Errorf("Level = %q; want default General", card.Level)
	}
}

func TestWordCard_BlankFieldsGetDefaults(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"translation": "", "simpler_synonym": ""}`},
	}
	svc := NewService(testStore(t), p)

	card, err := svc.WordCard(context.Background(), "學生")
	if err != nil {
		t.Fatalf("WordCard returned error: %v", err)
	}
	if card.Level != "Level 2" {
		t.Errorf("Level = %q; want official Level 2", card.Level)
	}
	if card.Translation != "學生" {
		t.Errorf("Translation = %q; want the word itself", card.Translation)
	}
	if card.DefinitionEN != "Definition not available." || card.DefinitionCH != "暫無釋義" {
		t.Errorf("definitions not defaulted: %+v", card)
	}
	if card.Example != "暫無例句" || card.ExampleEN != "No example translation available." {
		t.Errorf("examples not defaulted: %+v", card)
	}
	if card.SimplerSynonym != nil {
		t.Errorf("empty synonym not cleared: %v", *card.SimplerSynonym)
	}
}

func TestWordCard_FencedResponse(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "```json\n{\"translation\": \"teacher\"}\n```"},
	}
	svc := NewService(testStore(t), p)

	card, err := svc.WordCard(context.Background(), "老師")
	if err != nil {
		t.Fatalf("WordCard returned error: %v", err)
	}
	if card.Translation != "teacher" {
		t.Errorf("Translation = %q; want teacher", card.Translation)
	}
}

func TestWordCard_Errors(t *testing.T) {
	t.Parallel()

	svc := NewService(testStore(t), &llmmock.Provider{CompleteErr: errors.New("backend down")})
	if _, err := svc.WordCard(context.Background(), "學生"); err == nil {
		t.Fatal("expected error for failing backend")
	}

	svc = NewService(testStore(t), &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "not json"},
	})
	if _, err := svc.WordCard(context.Background(), "學生"); err == nil {
		t.Fatal("expected error for malformed response")
	}
}
