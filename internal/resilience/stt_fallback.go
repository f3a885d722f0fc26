package resilience

import (
	"context"

	"github.com/hantube/hantube/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// speech recognition backends. Each backend has its own circuit breaker. A
// common pairing is a remote whisper server as primary with the in-process
// native engine as fallback, so a whole video transcription does not die
// because the server restarted.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	if cfg.Kind == "" {
		cfg.Kind = "stt"
	}
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe runs recognition against the first healthy provider. A failed
// transcription is retried in full on the next backend; partial segments from
// a failed attempt are discarded.
func (f *STTFallback) Transcribe(ctx context.Context, audioPath string) ([]stt.Segment, error) {
	return ExecuteWithResult(ctx, f.group, func(p stt.Provider) ([]stt.Segment, error) {
		return p.Transcribe(ctx, audioPath)
	})
}
