package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hantube/hantube/internal/app"
	"github.com/hantube/hantube/internal/config"
	embmock "github.com/hantube/hantube/pkg/provider/embeddings/mock"
	"github.com/hantube/hantube/pkg/provider/llm"
	llmmock "github.com/hantube/hantube/pkg/provider/llm/mock"
	sttmock "github.com/hantube/hantube/pkg/provider/stt/mock"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// fullConfig returns a config with every subsystem's data files present.
func fullConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	corpus := writeFile(t, dir, "corpus.txt", "當代中文課程 基礎 第1級\n把字句。//進階 第3級\n連……都……。")
	db := writeFile(t, dir, "words.json", `{"學生": 2, "你好": 1}`)

	return &config.Config{
		Server: config.ServerConfig{ListenAddr: "127.0.0.1:0", LogLevel: config.LogInfo},
		Corpus: config.CorpusConfig{Path: corpus},
		Vocab:  config.VocabConfig{DatabasePath: db},
	}
}

func fullProviders() *app.Providers {
	return &app.Providers{
		LLM: &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "{}"}},
		STT: &sttmock.Provider{},
		Embeddings: &embmock.Provider{
			EmbedResult:      []float32{1, 0, 0},
			EmbedBatchResult: [][]float32{{1, 0, 0}, {0, 1, 0}},
			DimensionsValue:  3,
			ModelIDValue:     "test-embed-v1",
		},
	}
}

func TestNew_FullyConfigured(t *testing.T) {
	t.Parallel()

	a, err := app.New(fullConfig(t), fullProviders())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Every API endpoint should be routed (none answering 503).
	for _, tc := range []struct {
		path, body string
	}{
		{"/api/analyze", `{"text":"你好","user_level":1}`},
		{"/api/vocab", `{"word":"學生"}`},
		{"/api/vocab/extract", `{"text":"學生"}`},
		{"/api/simplify", `{"text":"你好"}`},
	} {
		req := httptest.NewRequest("POST", tc.path, strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		if rec.Code == http.StatusServiceUnavailable {
			t.Errorf("%s: got 503, subsystem should be wired", tc.path)
		}
	}
}

func TestNew_MinimalConfigDegrades(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Server: config.ServerConfig{ListenAddr: "127.0.0.1:0"},
	}
	a, err := app.New(cfg, &app.Providers{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Health stays up.
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", rec.Code)
	}

	// Feature endpoints answer 503, not 404.
	for _, tc := range []struct {
		path, body string
	}{
		{"/api/analyze", `{"text":"你好","user_level":1}`},
		{"/api/transcribe", `{"url":"https://example.com/v"}`},
		{"/api/vocab", `{"word":"學生"}`},
	} {
		req := httptest.NewRequest("POST", tc.path, strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", tc.path, rec.Code)
		}
	}
}

func TestNew_MissingVocabDatabaseIsFatal(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Server: config.ServerConfig{ListenAddr: "127.0.0.1:0"},
		Vocab:  config.VocabConfig{DatabasePath: "/nonexistent/words.json"},
	}
	if _, err := app.New(cfg, fullProviders()); err == nil {
		t.Fatal("expected error for unreadable vocabulary database, got nil")
	}
}

func TestReadyz_ReportsMissingCorpus(t *testing.T) {
	t.Parallel()

	cfg := fullConfig(t)
	a, err := app.New(cfg, fullProviders())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Remove the corpus after startup; readiness should notice.
	if err := os.Remove(cfg.Corpus.Path); err != nil {
		t.Fatalf("remove corpus: %v", err)
	}

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz status = %d, want 503", rec.Code)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	a, err := app.New(fullConfig(t), fullProviders())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// Give the listener a moment, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil after graceful shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	t.Parallel()

	a, err := app.New(fullConfig(t), fullProviders())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Shutdown(); err != nil {
		t.Errorf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}
