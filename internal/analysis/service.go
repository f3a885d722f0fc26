package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hantube/hantube/internal/corpus"
	"github.com/hantube/hantube/internal/index"
	"github.com/hantube/hantube/pkg/provider/embeddings"
	"github.com/hantube/hantube/pkg/provider/llm"
)

// Service owns the analysis subsystem lifecycle: corpus load, index
// build-or-load, persistence, and chain construction. The expensive sequence
// runs at most once per Service; concurrent first callers are collapsed into
// a single build so two simultaneous requests cannot race to write competing
// index files. A failed build is not latched — the next caller retries, so a
// transient embedding-backend outage does not poison the process.
//
// Construct one Service at startup and inject it into request handlers.
type Service struct {
	corpusPath string
	indexDir   string
	embedder   embeddings.Provider
	llm        llm.Provider
	batchSize  int
	chainOpts  []ChainOption
	logger     *slog.Logger

	group singleflight.Group

	mu         sync.RWMutex
	chain      *Chain
	retrievalK int
}

// ServiceOption is a functional option for configuring a [Service].
type ServiceOption func(*Service)

// WithIndexDir enables index persistence under dir: the first build tries to
// load from dir and saves there after a rebuild. Empty (the default) keeps
// the index in memory only.
func WithIndexDir(dir string) ServiceOption {
	return func(s *Service) { s.indexDir = dir }
}

// WithBatchSize sets the embedding batch size used during index builds.
func WithBatchSize(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithChainOptions forwards options to the [Chain] built by the service.
func WithChainOptions(opts ...ChainOption) ServiceOption {
	return func(s *Service) { s.chainOpts = append(s.chainOpts, opts...) }
}

// WithServiceLogger sets the logger. Defaults to slog.Default.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService wires a Service over the grammar corpus at corpusPath and the
// given providers. Nothing is loaded or built until the first call that
// needs the chain.
func NewService(corpusPath string, embedder embeddings.Provider, provider llm.Provider, opts ...ServiceOption) *Service {
	s := &Service{
		corpusPath: corpusPath,
		embedder:   embedder,
		llm:        provider,
		batchSize:  index.DefaultBatchSize,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Chain returns the process-wide analysis chain, building it on first use.
// Subsequent calls return the identical chain without reconstruction.
func (s *Service) Chain(ctx context.Context) (*Chain, error) {
	s.mu.RLock()
	c := s.chain
	s.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	v, err, _ := s.group.Do("chain", func() (any, error) {
		// Re-check under the flight: a previous flight may have finished
		// between the fast path and Do.
		s.mu.RLock()
		c := s.chain
		s.mu.RUnlock()
		if c != nil {
			return c, nil
		}

		c, err := s.buildChain(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.chain = c
		s.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Chain), nil
}

// buildChain runs the load-or-rebuild sequence. A missing or unusable
// persisted index downgrades to a full rebuild with a warning; a missing
// corpus file is fatal since there is nothing to index.
func (s *Service) buildChain(ctx context.Context) (*Chain, error) {
	s.mu.RLock()
	opts := s.chainOptions()
	s.mu.RUnlock()

	if s.indexDir != "" {
		ix, err := index.Load(s.indexDir, s.embedder)
		if err == nil {
			s.logger.Info("loaded persisted grammar index", "dir", s.indexDir, "documents", ix.Len())
			return NewChain(s.llm, ix, opts...), nil
		}
		if errors.Is(err, index.ErrNotFound) {
			s.logger.Info("no persisted grammar index, building from corpus", "dir", s.indexDir)
		} else {
			s.logger.Warn("persisted grammar index unusable, rebuilding from corpus",
				"dir", s.indexDir, "error", err)
		}
	}

	docs, err := corpus.LoadFile(s.corpusPath)
	if err != nil {
		return nil, fmt.Errorf("load grammar corpus: %w", err)
	}

	ix, err := index.Build(ctx, docs, s.embedder,
		index.WithBatchSize(s.batchSize), index.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("build grammar index: %w", err)
	}

	if s.indexDir != "" {
		if err := ix.Save(s.indexDir); err != nil {
			// The in-memory index is fine; the next process start rebuilds.
			s.logger.Warn("failed to persist grammar index", "dir", s.indexDir, "error", err)
		}
	}
	return NewChain(s.llm, ix, opts...), nil
}

// chainOptions assembles the options for a new chain: the configured options
// plus the runtime retrieval-k override, when one is set. Callers must hold mu.
func (s *Service) chainOptions() []ChainOption {
	if s.retrievalK <= 0 {
		return s.chainOpts
	}
	return append(s.chainOpts[:len(s.chainOpts):len(s.chainOpts)], WithRetrievalK(s.retrievalK))
}

// SetRetrievalK changes how many grammar rules are retrieved per sentence.
// Safe to call at any time, repeatedly: the override replaces any previous
// one, and a chain that is already built is replaced with one over the same
// index, so no corpus reload or re-embedding happens.
func (s *Service) SetRetrievalK(k int) {
	if k <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retrievalK = k
	if s.chain != nil {
		s.chain = NewChain(s.llm, s.chain.index, s.chainOptions()...)
	}
	s.logger.Info("retrieval depth updated", "k", k)
}

// Analyze runs a single-sentence analysis, building the chain first if this
// is the initial call.
func (s *Service) Analyze(ctx context.Context, sentence string, level int) (*Result, error) {
	c, err := s.Chain(ctx)
	if err != nil {
		return nil, err
	}
	return c.Analyze(ctx, sentence, level)
}
