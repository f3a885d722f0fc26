// Package app wires all hantube subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems from the config and provider set, Run serves the HTTP API until
// the context is cancelled, and Shutdown tears everything down.
//
// Subsystems whose prerequisites are missing from the config are left nil;
// the HTTP layer answers their endpoints with 503 instead of the process
// refusing to start. This mirrors how the service is operated: a box without
// yt-dlp can still serve grammar analysis, and vice versa.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/hantube/hantube/internal/analysis"
	"github.com/hantube/hantube/internal/config"
	"github.com/hantube/hantube/internal/health"
	"github.com/hantube/hantube/internal/media"
	"github.com/hantube/hantube/internal/observe"
	"github.com/hantube/hantube/internal/server"
	"github.com/hantube/hantube/internal/transcript"
	"github.com/hantube/hantube/internal/transcript/script"
	"github.com/hantube/hantube/internal/vocab"
	"github.com/hantube/hantube/pkg/provider/embeddings"
	"github.com/hantube/hantube/pkg/provider/llm"
	"github.com/hantube/hantube/pkg/provider/stt"
)

// shutdownTimeout bounds how long Run waits for in-flight requests after
// its context is cancelled.
const shutdownTimeout = 15 * time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	LLM        llm.Provider
	STT        stt.Provider
	Embeddings embeddings.Provider
}

// App owns all subsystem lifetimes and serves the hantube HTTP API.
type App struct {
	cfg       *config.Config
	providers *Providers
	logger    *slog.Logger
	metrics   *observe.Metrics

	analysis  *analysis.Service
	corrector *transcript.Corrector
	extractor *media.Extractor
	vocabSvc  *vocab.Service
	vocabExt  *vocab.Extractor

	httpSrv *http.Server

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithLogger sets the application logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics injects a metrics set instead of the package-level default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMediaExtractor injects a media extractor instead of creating one from
// config. Tests use this to substitute stub binaries.
func WithMediaExtractor(e *media.Extractor) Option {
	return func(a *App) { a.extractor = e }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initTranscription(); err != nil {
		return nil, fmt.Errorf("app: init transcription: %w", err)
	}
	a.initAnalysis()
	if err := a.initVocab(); err != nil {
		return nil, fmt.Errorf("app: init vocabulary: %w", err)
	}

	a.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server.New(a.serverDeps()).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// initTranscription sets up the media extractor and the correction pipeline.
// Requires an LLM provider for correction; the STT provider itself arrives
// pre-built in Providers.
func (a *App) initTranscription() error {
	if a.extractor == nil {
		a.extractor = media.NewExtractor(
			media.WithYtdlpPath(a.cfg.Media.YtdlpPath),
			media.WithFFmpegPath(a.cfg.Media.FFmpegPath),
			media.WithWorkDir(a.cfg.Media.WorkDir),
			media.WithLogger(a.logger),
		)
	}

	if a.providers.LLM == nil || a.providers.STT == nil {
		a.logger.Warn("transcription disabled", "llm", a.providers.LLM != nil, "stt", a.providers.STT != nil)
		return nil
	}

	normalizer, err := script.NewNormalizer()
	if err != nil {
		return fmt.Errorf("create script normalizer: %w", err)
	}
	a.corrector = transcript.New(a.providers.LLM, normalizer,
		transcript.WithLogger(a.logger),
		transcript.WithMetrics(a.metrics))
	return nil
}

// initAnalysis sets up the grammar analysis service when the config names a
// corpus and both backing providers exist. The index itself is built or
// loaded lazily on first use.
func (a *App) initAnalysis() {
	if a.cfg.Corpus.Path == "" || a.providers.Embeddings == nil || a.providers.LLM == nil {
		a.logger.Warn("grammar analysis disabled",
			"corpus", a.cfg.Corpus.Path != "",
			"embeddings", a.providers.Embeddings != nil,
			"llm", a.providers.LLM != nil,
		)
		return
	}

	svcOpts := []analysis.ServiceOption{analysis.WithServiceLogger(a.logger)}
	if a.cfg.Corpus.IndexDir != "" {
		svcOpts = append(svcOpts, analysis.WithIndexDir(a.cfg.Corpus.IndexDir))
	}
	if a.cfg.Corpus.BatchSize > 0 {
		svcOpts = append(svcOpts, analysis.WithBatchSize(a.cfg.Corpus.BatchSize))
	}
	if a.cfg.Corpus.RetrievalK > 0 {
		svcOpts = append(svcOpts, analysis.WithChainOptions(analysis.WithRetrievalK(a.cfg.Corpus.RetrievalK)))
	}

	a.analysis = analysis.NewService(a.cfg.Corpus.Path, a.providers.Embeddings, a.providers.LLM, svcOpts...)
}

// initVocab loads the COCT database and sets up the word-card service. A
// missing database path disables the subsystem; an unreadable database is a
// hard error because the path was explicitly configured.
func (a *App) initVocab() error {
	if a.cfg.Vocab.DatabasePath == "" {
		return nil
	}

	store, err := vocab.LoadStore(a.cfg.Vocab.DatabasePath)
	if err != nil {
		return fmt.Errorf("load vocabulary database: %w", err)
	}
	a.vocabExt = vocab.NewExtractor(store)
	a.logger.Info("vocabulary database loaded", "words", store.Len())

	if a.providers.LLM == nil {
		a.logger.Warn("word cards disabled, no llm provider; extraction remains available")
		return nil
	}

	opts := []vocab.ServiceOption{vocab.WithLogger(a.logger)}
	if a.cfg.Corpus.Path != "" {
		corpus, err := os.ReadFile(a.cfg.Corpus.Path)
		if err != nil {
			a.logger.Warn("example corpus unreadable, cards will invent examples", "err", err)
		} else {
			opts = append(opts, vocab.WithExampleCorpus(string(corpus)))
		}
	}
	a.vocabSvc = vocab.NewService(store, a.providers.LLM, opts...)
	return nil
}

// serverDeps assembles the HTTP dependency set, including readiness checks
// for everything the config promises.
func (a *App) serverDeps() server.Deps {
	var checkers []health.Checker
	if a.cfg.Corpus.Path != "" {
		checkers = append(checkers, health.FileChecker("corpus", a.cfg.Corpus.Path))
	}
	if a.cfg.Vocab.DatabasePath != "" {
		checkers = append(checkers, health.FileChecker("vocab_db", a.cfg.Vocab.DatabasePath))
	}
	if a.corrector != nil {
		ytdlp := a.cfg.Media.YtdlpPath
		if ytdlp == "" {
			ytdlp = "yt-dlp"
		}
		ffmpeg := a.cfg.Media.FFmpegPath
		if ffmpeg == "" {
			ffmpeg = "ffmpeg"
		}
		checkers = append(checkers,
			health.BinaryChecker("yt-dlp", ytdlp),
			health.BinaryChecker("ffmpeg", ffmpeg),
		)
	}

	return server.Deps{
		Analysis:  a.analysis,
		Media:     a.extractor,
		STT:       a.providers.STT,
		Corrector: a.corrector,
		Vocab:     a.vocabSvc,
		Extractor: a.vocabExt,
		Health:    health.New(checkers...),
		Metrics:   a.metrics,
		Logger:    a.logger,
	}
}

// Handler returns the assembled HTTP handler. Exposed for tests that drive
// the API without binding a listener.
func (a *App) Handler() http.Handler {
	return a.httpSrv.Handler
}

// Analysis returns the grammar analysis service, or nil when analysis is not
// configured. Used to apply configuration changes to a running process.
func (a *App) Analysis() *analysis.Service {
	return a.analysis
}

// Run serves the HTTP API and blocks until ctx is cancelled or the listener
// fails. On cancellation it drains in-flight requests for up to
// [shutdownTimeout] before returning.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			a.logger.Info("serving HTTPS", "addr", a.httpSrv.Addr)
			err = a.httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			a.logger.Info("serving HTTP", "addr", a.httpSrv.Addr)
			err = a.httpSrv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
		return a.Shutdown()
	}
}

// Shutdown gracefully stops the HTTP server. Safe to call more than once.
func (a *App) Shutdown() error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownErr = err
		}
		a.logger.Info("shutdown complete")
	})
	return shutdownErr
}
