package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":        {"whisper", "whisper-native"},
	"embeddings": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	validateProviderName("llm", cfg.Providers.LLMFallback.Name)
	validateProviderName("stt", cfg.Providers.STTFallback.Name)
	validateProviderName("embeddings", cfg.Providers.EmbeddingsFallback.Name)

	// Subsystem availability warnings. None of these are hard errors: the
	// server degrades to the endpoints its configuration can support.
	if cfg.Corpus.Path == "" {
		slog.Warn("corpus.path is empty; grammar analysis will not be available")
	} else if cfg.Providers.Embeddings.Name == "" {
		slog.Warn("corpus.path is set but providers.embeddings is not; grammar analysis will not be available")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm is not configured; analysis, correction, and vocabulary generation will not be available")
	}
	if cfg.Providers.STT.Name == "" {
		slog.Warn("providers.stt is not configured; transcription will not be available")
	}
	if cfg.Vocab.DatabasePath == "" {
		slog.Warn("vocab.database_path is empty; vocabulary endpoints will not be available")
	}
	if cfg.Providers.LLMFallback.Name != "" && cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm_fallback is set without providers.llm; it will be ignored")
	}
	if cfg.Providers.STTFallback.Name != "" && cfg.Providers.STT.Name == "" {
		slog.Warn("providers.stt_fallback is set without providers.stt; it will be ignored")
	}
	if cfg.Providers.EmbeddingsFallback.Name != "" && cfg.Providers.Embeddings.Name == "" {
		slog.Warn("providers.embeddings_fallback is set without providers.embeddings; it will be ignored")
	}

	if cfg.Corpus.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("corpus.batch_size %d is negative", cfg.Corpus.BatchSize))
	}
	if cfg.Corpus.RetrievalK < 0 {
		errs = append(errs, fmt.Errorf("corpus.retrieval_k %d is negative", cfg.Corpus.RetrievalK))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
