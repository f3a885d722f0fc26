// Package config provides the configuration schema, loader, provider
// registry, and file watcher for the hantube server.
package config

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for hantube.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Vocab     VocabConfig     `yaml:"vocab"`
	Media     MediaConfig     `yaml:"media"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	LLM        ProviderEntry `yaml:"llm"`
	STT        ProviderEntry `yaml:"stt"`
	Embeddings ProviderEntry `yaml:"embeddings"`

	// The *_fallback entries are optional secondary backends. When set, the
	// primary is wrapped in a circuit-breaker failover group and the fallback
	// is tried whenever the primary fails or its breaker is open. An
	// embeddings fallback must serve the same model as the primary.
	LLMFallback        ProviderEntry `yaml:"llm_fallback"`
	STTFallback        ProviderEntry `yaml:"stt_fallback"`
	EmbeddingsFallback ProviderEntry `yaml:"embeddings_fallback"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "ollama", "whisper").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "qwen2.5:7b", "nomic-embed-text").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// CorpusConfig locates the grammar corpus and tunes the vector index.
type CorpusConfig struct {
	// Path is the cleaned grammar corpus file (// separated blocks).
	// Required for the analysis subsystem.
	Path string `yaml:"path"`

	// IndexDir is where the built vector index is persisted. Empty keeps the
	// index in memory only, rebuilding it on every process start.
	IndexDir string `yaml:"index_dir"`

	// BatchSize is the embedding batch size used during index builds.
	// Zero selects the built-in default.
	BatchSize int `yaml:"batch_size"`

	// RetrievalK is how many grammar rules are retrieved per analyzed
	// sentence. Zero selects the built-in default.
	RetrievalK int `yaml:"retrieval_k"`
}

// VocabConfig locates the vocabulary database.
type VocabConfig struct {
	// DatabasePath is the COCT word-level JSON database. Empty disables the
	// vocabulary endpoints.
	DatabasePath string `yaml:"database_path"`
}

// MediaConfig configures the external audio extraction tools.
type MediaConfig struct {
	// YtdlpPath overrides the yt-dlp binary. Empty means "yt-dlp" on PATH.
	YtdlpPath string `yaml:"ytdlp_path"`

	// FFmpegPath overrides the ffmpeg binary. Empty means "ffmpeg" on PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`

	// WorkDir is the parent directory for per-job temp directories.
	// Empty uses the system temp directory.
	WorkDir string `yaml:"work_dir"`
}
