package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/hantube/hantube/internal/corpus"
	"github.com/hantube/hantube/internal/index"
	"github.com/hantube/hantube/internal/observe"
	embmock "github.com/hantube/hantube/pkg/provider/embeddings/mock"
	"github.com/hantube/hantube/pkg/provider/llm"
	llmmock "github.com/hantube/hantube/pkg/provider/llm/mock"
)

func lvl(n int) *int { return &n }

// testEmbedder maps any text mentioning 把 to one axis and everything else to
// an orthogonal one, so retrieval order in tests is deterministic.
func testEmbedder() *embmock.Provider {
	vec := func(text string) []float32 {
		if strings.Contains(text, "把") {
			return []float32{1, 0, 0}
		}
		return []float32{0, 1, 0}
	}
	return &embmock.Provider{
		DimensionsValue: 3,
		ModelIDValue:    "test-embed-v1",
		EmbedFunc: func(_ context.Context, text string) ([]float32, error) {
			return vec(text), nil
		},
		EmbedBatchFunc: func(_ context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, t := range texts {
				out[i] = vec(t)
			}
			return out, nil
		},
	}
}

func testIndex(t *testing.T) *index.Index {
	t.Helper()
	docs := []corpus.Document{
		{Text: "基礎 第1級 把字句:用「把」將受詞提前。", Level: lvl(1)},
		{Text: "基礎 第2級 連……都……:表示強調。", Level: lvl(2)},
	}
	ix, err := index.Build(context.Background(), docs, testEmbedder())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return ix
}

func TestAnalyze_PromptCarriesRetrievedRules(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: validResponse},
	}
	c := NewChain(p, testIndex(t))

	result, err := c.Analyze(context.Background(), "他把書放在桌上", 1)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if len(p.CompleteCalls) != 1 {
		t.Fatalf("expected 1 backend call, got %d", len(p.CompleteCalls))
	}
	req := p.CompleteCalls[0].Req
	if req.Temperature != 0.1 {
		t.Errorf("Temperature = %v; want 0.1", req.Temperature)
	}
	prompt := req.Messages[0].Content
	if !strings.Contains(prompt, "把字句") {
		t.Errorf("prompt missing retrieved rule:\n%s", prompt)
	}
	if strings.Contains(prompt, "連……都……") {
		t.Errorf("prompt leaked rule outside level filter:\n%s", prompt)
	}
	if !strings.Contains(prompt, `Target Sentence: "他把書放在桌上"`) {
		t.Errorf("prompt missing target sentence:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Retrieved Grammar Rules (Level 1)") {
		t.Errorf("prompt missing level header:\n%s", prompt)
	}

	if !result.Matched.Found {
		t.Error("Matched.Found = false; want true")
	}
	if result.Phonetics.Pinyin == "" || result.Phonetics.Zhuyin == "" {
		t.Errorf("phonetics not populated: %+v", result.Phonetics)
	}
}

func TestAnalyze_EmptyRetrievalStillCallsBackend(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"matched_grammar": {"found": false}}`},
	}
	c := NewChain(p, testIndex(t))

	// No corpus documents at level 9; the chain must proceed with an empty
	// context block rather than short-circuit.
	result, err := c.Analyze(context.Background(), "他把書放在桌上", 9)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(p.CompleteCalls) != 1 {
		t.Fatalf("expected 1 backend call, got %d", len(p.CompleteCalls))
	}
	if result.Matched.Found {
		t.Error("Matched.Found = true with empty context")
	}
	if result.Matched.Level != 9 {
		t.Errorf("Level = %d; want requested level 9", result.Matched.Level)
	}
}

func TestAnalyze_MalformedResponse(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "not json"},
	}
	c := NewChain(p, testIndex(t))

	_, err := c.Analyze(context.Background(), "你好", 1)
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("error is %T; want *MalformedResponseError", err)
	}
	if malformed.Raw != "not json" {
		t.Errorf("Raw = %q; want verbatim backend text", malformed.Raw)
	}
}

func TestAnalyze_BackendErrorPropagates(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{CompleteErr: errors.New("backend down")}
	c := NewChain(p, testIndex(t))

	if _, err := c.Analyze(context.Background(), "你好", 1); err == nil {
		t.Fatal("expected error from failing backend")
	}
}

func TestAnalyze_RetrievalKOption(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: validResponse},
	}
	c := NewChain(p, testIndex(t), WithRetrievalK(1))

	if _, err := c.Analyze(context.Background(), "他把書放在桌上", 1); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
}

func TestAnalyze_RecordsLatencyHistograms(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: validResponse},
	}
	c := NewChain(p, testIndex(t), WithChainMetrics(metrics))

	if _, err := c.Analyze(context.Background(), "他把書放在桌上", 1); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, name := range []string{"hantube.analysis.duration", "hantube.llm.duration"} {
		var count uint64
		for _, sm := range rm.ScopeMetrics {
			for _, met := range sm.Metrics {
				if met.Name != name {
					continue
				}
				hist, ok := met.Data.(metricdata.Histogram[float64])
				if !ok {
					t.Fatalf("metric %q is not a histogram", name)
				}
				for _, dp := range hist.DataPoints {
					count += dp.Count
				}
			}
		}
		if count != 1 {
			t.Errorf("%s sample count = %d, want 1", name, count)
		}
	}
}
