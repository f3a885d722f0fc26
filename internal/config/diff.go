package config

// DiffResult describes what changed between two configs. Only changes that are
// safe to apply without a restart are tracked individually; anything else
// sets RestartRequired so the watcher callback can log a clear warning.
type DiffResult struct {
	// LogLevelChanged is true when server.log_level differs; the new level
	// can be applied to the running logger immediately.
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RetrievalKChanged is true when corpus.retrieval_k differs. The
	// analysis chain picks tuning up on its next construction.
	RetrievalKChanged bool
	NewRetrievalK     int

	// RestartRequired is true when providers, corpus location, vocabulary
	// database, media tools, or server addressing changed — none of those
	// can be swapped under a live process.
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) DiffResult {
	d := DiffResult{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Corpus.RetrievalK != new.Corpus.RetrievalK {
		d.RetrievalKChanged = true
		d.NewRetrievalK = new.Corpus.RetrievalK
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) ||
		!entryEqual(old.Providers.LLM, new.Providers.LLM) ||
		!entryEqual(old.Providers.STT, new.Providers.STT) ||
		!entryEqual(old.Providers.Embeddings, new.Providers.Embeddings) ||
		!entryEqual(old.Providers.LLMFallback, new.Providers.LLMFallback) ||
		!entryEqual(old.Providers.STTFallback, new.Providers.STTFallback) ||
		!entryEqual(old.Providers.EmbeddingsFallback, new.Providers.EmbeddingsFallback) ||
		old.Corpus.Path != new.Corpus.Path ||
		old.Corpus.IndexDir != new.Corpus.IndexDir ||
		old.Corpus.BatchSize != new.Corpus.BatchSize ||
		old.Vocab != new.Vocab ||
		old.Media != new.Media {
		d.RestartRequired = true
	}
	return d
}

// entryEqual compares the scalar fields of two provider entries. Options
// maps are compared by length only; a changed option value that keeps the
// same keys is rare enough to accept a missed restart warning.
func entryEqual(a, b ProviderEntry) bool {
	return a.Name == b.Name &&
		a.APIKey == b.APIKey &&
		a.BaseURL == b.BaseURL &&
		a.Model == b.Model &&
		len(a.Options) == len(b.Options)
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
