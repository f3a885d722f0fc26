package resilience

import (
	"context"
	"errors"
	"testing"

	embmock "github.com/hantube/hantube/pkg/provider/embeddings/mock"
)

func TestEmbeddingsFallback_Embed_PrimarySuccess(t *testing.T) {
	primary := &embmock.Provider{EmbedResult: []float32{1, 0, 0}}
	secondary := &embmock.Provider{EmbedResult: []float32{0, 1, 0}}

	fb := NewEmbeddingsFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	vec, err := fb.Embed(context.Background(), "你好")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[0] != 1 {
		t.Fatalf("vec = %v, want [1 0 0]", vec)
	}
	if len(secondary.EmbedCalls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.EmbedCalls))
	}
}

func TestEmbeddingsFallback_EmbedBatch_Failover(t *testing.T) {
	primary := &embmock.Provider{EmbedBatchErr: errors.New("primary down")}
	secondary := &embmock.Provider{
		EmbedBatchResult: [][]float32{{1, 0}, {0, 1}},
	}

	fb := NewEmbeddingsFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	vecs, err := fb.EmbedBatch(context.Background(), []string{"你好", "謝謝"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	if len(secondary.EmbedBatchCalls) != 1 {
		t.Fatalf("secondary called %d times, want 1", len(secondary.EmbedBatchCalls))
	}
}

func TestEmbeddingsFallback_AllFail(t *testing.T) {
	primary := &embmock.Provider{EmbedErr: errors.New("primary down")}
	secondary := &embmock.Provider{EmbedErr: errors.New("secondary down")}

	fb := NewEmbeddingsFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Embed(context.Background(), "你好")
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestEmbeddingsFallback_StaticMetadataFromPrimary(t *testing.T) {
	primary := &embmock.Provider{DimensionsValue: 768, ModelIDValue: "nomic-embed-text:v1.5"}
	secondary := &embmock.Provider{DimensionsValue: 1536, ModelIDValue: "other"}

	fb := NewEmbeddingsFallback(primary, "primary", FallbackConfig{})
	fb.AddFallback("secondary", secondary)

	if got := fb.Dimensions(); got != 768 {
		t.Errorf("Dimensions = %d, want 768", got)
	}
	if got := fb.ModelID(); got != "nomic-embed-text:v1.5" {
		t.Errorf("ModelID = %q, want nomic-embed-text:v1.5", got)
	}
}
