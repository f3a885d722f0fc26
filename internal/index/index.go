// Package index provides an in-memory vector index over the grammar corpus.
//
// Every corpus document is embedded once at build time; at query time the
// sentence under analysis is embedded and ranked against the stored vectors by
// cosine similarity. Retrieval can be restricted to a single learner level, in
// which case the level filter is applied before ranking so that the top-k list
// is drawn entirely from level-appropriate documents.
//
// A built index can be persisted to a directory (see Save and Load) so that
// later runs skip the embedding pass entirely.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/hantube/hantube/internal/corpus"
	"github.com/hantube/hantube/internal/observe"
	"github.com/hantube/hantube/pkg/provider/embeddings"
)

// DefaultBatchSize is the number of documents embedded per provider call
// during Build. Small batches keep individual requests fast on local
// embedding servers and make progress logging meaningful.
const DefaultBatchSize = 10

// Entry pairs a corpus document with its embedding vector.
type Entry struct {
	Document corpus.Document
	Vector   []float32
}

// Match is a single retrieval result.
type Match struct {
	// Document is the matched grammar point.
	Document corpus.Document

	// Score is the cosine similarity between the query and the document,
	// in [-1, 1]. Higher is more similar.
	Score float32
}

// Index is an immutable in-memory vector index. Build or Load construct it;
// afterwards it is safe for concurrent use.
type Index struct {
	provider embeddings.Provider
	entries  []Entry
	model    string
	dims     int
	metrics  *observe.Metrics
}

// buildConfig holds optional Build configuration.
type buildConfig struct {
	batchSize int
	logger    *slog.Logger
	metrics   *observe.Metrics
}

// BuildOption is a functional option for Build.
type BuildOption func(*buildConfig)

// WithBatchSize overrides the number of documents embedded per provider call.
// Values < 1 fall back to DefaultBatchSize.
func WithBatchSize(n int) BuildOption {
	return func(c *buildConfig) {
		if n >= 1 {
			c.batchSize = n
		}
	}
}

// WithLogger sets the logger used for build progress. Defaults to slog.Default().
func WithLogger(l *slog.Logger) BuildOption {
	return func(c *buildConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics instance used for embedding latency, both per
// build batch and per query. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) BuildOption {
	return func(c *buildConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// Build embeds all documents through the provider and returns a ready index.
//
// Documents are embedded in batches; a failure in any batch aborts the build
// with an error rather than producing a partially populated index.
func Build(ctx context.Context, docs []corpus.Document, provider embeddings.Provider, opts ...BuildOption) (*Index, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("index: no documents to build from")
	}

	cfg := &buildConfig{
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
		metrics:   observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(cfg)
	}

	start := time.Now()
	cfg.logger.Info("building corpus index",
		"documents", len(docs),
		"batch_size", cfg.batchSize,
		"model", provider.ModelID())

	entries := make([]Entry, 0, len(docs))
	for lo := 0; lo < len(docs); lo += cfg.batchSize {
		hi := min(lo+cfg.batchSize, len(docs))

		texts := make([]string, 0, hi-lo)
		for _, d := range docs[lo:hi] {
			texts = append(texts, d.Text)
		}

		batchStart := time.Now()
		vecs, err := provider.EmbedBatch(ctx, texts)
		cfg.metrics.EmbeddingDuration.Record(ctx, time.Since(batchStart).Seconds())
		if err != nil {
			return nil, fmt.Errorf("index: embed documents %d-%d: %w", lo, hi-1, err)
		}
		for i, v := range vecs {
			entries = append(entries, Entry{Document: docs[lo+i], Vector: v})
		}

		cfg.logger.Debug("embedded batch", "done", hi, "total", len(docs))
	}

	cfg.logger.Info("corpus index built",
		"documents", len(entries),
		"duration", time.Since(start))

	return &Index{
		provider: provider,
		entries:  entries,
		model:    provider.ModelID(),
		dims:     provider.Dimensions(),
		metrics:  cfg.metrics,
	}, nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Search embeds the query and returns up to k documents ranked by cosine
// similarity, highest first.
//
// When level is non-nil, only documents tagged with exactly that level are
// considered; untagged documents are excluded from filtered queries. The
// filter is applied before ranking and truncation, so a filtered search
// returns the k best level-matching documents, not the level-matching subset
// of the overall top k.
func (ix *Index) Search(ctx context.Context, query string, k int, level *int) ([]Match, error) {
	if k < 1 {
		return nil, fmt.Errorf("index: k must be >= 1, got %d", k)
	}

	embedStart := time.Now()
	qv, err := ix.provider.Embed(ctx, query)
	ix.metrics.EmbeddingDuration.Record(ctx, time.Since(embedStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("index: embed query: %w", err)
	}

	matches := make([]Match, 0, len(ix.entries))
	for _, e := range ix.entries {
		if level != nil {
			if e.Document.Level == nil || *e.Document.Level != *level {
				continue
			}
		}
		matches = append(matches, Match{
			Document: e.Document,
			Score:    cosineSimilarity(qv, e.Vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths or zero vectors yield 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
