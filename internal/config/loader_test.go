package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hantube/hantube/internal/config"
)

const fullYAML = `
server:
  listen_addr: ":8080"
  log_level: debug
  tls:
    cert_file: /etc/hantube/cert.pem
    key_file: /etc/hantube/key.pem

providers:
  llm:
    name: ollama
    base_url: http://localhost:11434
    model: qwen2.5:7b
    options:
      num_ctx: 8192
  stt:
    name: whisper-native
    model: /models/ggml-large-v3.bin
  embeddings:
    name: ollama
    model: nomic-embed-text

corpus:
  path: /data/grammar_corpus_cleaned.txt
  index_dir: /data/index
  batch_size: 20
  retrieval_k: 5

vocab:
  database_path: /data/coct_words.json

media:
  ytdlp_path: /usr/local/bin/yt-dlp
  ffmpeg_path: /usr/bin/ffmpeg
  work_dir: /tmp/hantube
`

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level: got %q, want %q", cfg.Server.LogLevel, config.LogDebug)
	}
	if cfg.Server.TLS == nil || cfg.Server.TLS.CertFile != "/etc/hantube/cert.pem" {
		t.Errorf("tls: got %+v", cfg.Server.TLS)
	}
	if cfg.Providers.LLM.Name != "ollama" || cfg.Providers.LLM.Model != "qwen2.5:7b" {
		t.Errorf("providers.llm: got %+v", cfg.Providers.LLM)
	}
	if v, ok := cfg.Providers.LLM.Options["num_ctx"]; !ok || v != 8192 {
		t.Errorf("providers.llm.options[num_ctx]: got %v", v)
	}
	if cfg.Providers.STT.Name != "whisper-native" {
		t.Errorf("providers.stt.name: got %q", cfg.Providers.STT.Name)
	}
	if cfg.Providers.Embeddings.Model != "nomic-embed-text" {
		t.Errorf("providers.embeddings.model: got %q", cfg.Providers.Embeddings.Model)
	}
	if cfg.Corpus.Path != "/data/grammar_corpus_cleaned.txt" {
		t.Errorf("corpus.path: got %q", cfg.Corpus.Path)
	}
	if cfg.Corpus.BatchSize != 20 || cfg.Corpus.RetrievalK != 5 {
		t.Errorf("corpus tuning: got batch_size=%d retrieval_k=%d", cfg.Corpus.BatchSize, cfg.Corpus.RetrievalK)
	}
	if cfg.Vocab.DatabasePath != "/data/coct_words.json" {
		t.Errorf("vocab.database_path: got %q", cfg.Vocab.DatabasePath)
	}
	if cfg.Media.WorkDir != "/tmp/hantube" {
		t.Errorf("media.work_dir: got %q", cfg.Media.WorkDir)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_adr: \":8080\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
	if !strings.Contains(err.Error(), "listen_adr") {
		t.Errorf("error should name the unknown field, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "invalid log level",
			mutate:  func(c *config.Config) { c.Server.LogLevel = "bananas" },
			wantErr: "log_level",
		},
		{
			name:    "tls missing key file",
			mutate:  func(c *config.Config) { c.Server.TLS = &config.TLSConfig{CertFile: "/cert.pem"} },
			wantErr: "cert_file and key_file",
		},
		{
			name:    "negative batch size",
			mutate:  func(c *config.Config) { c.Corpus.BatchSize = -1 },
			wantErr: "batch_size",
		},
		{
			name:    "negative retrieval k",
			mutate:  func(c *config.Config) { c.Corpus.RetrievalK = -3 },
			wantErr: "retrieval_k",
		},
		{
			name:   "empty config is valid",
			mutate: func(*config.Config) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &config.Config{}
			tt.mutate(cfg)
			err := config.Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %v should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_JoinsAllFailures(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Server.LogLevel = "loud"
	cfg.Corpus.BatchSize = -1
	cfg.Corpus.RetrievalK = -1

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"log_level", "batch_size", "retrieval_k"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error should mention %q, got %v", want, err)
		}
	}
}

func TestLoad_FromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := config.Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
