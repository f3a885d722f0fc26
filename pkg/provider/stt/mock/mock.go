// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider to feed controlled transcription segments without audio files
// or a live whisper backend.
package mock

import (
	"context"
	"sync"

	"github.com/hantube/hantube/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// AudioPath is the file path passed to Transcribe.
	AudioPath string
}

// Provider is a mock implementation of stt.Provider.
// Zero values cause Transcribe to return (nil, nil).
type Provider struct {
	mu sync.Mutex

	// Segments is returned by Transcribe.
	Segments []stt.Segment

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every invocation of Transcribe in order.
	Calls []TranscribeCall
}

// Transcribe records the call and returns Segments, Err.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) ([]stt.Segment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, TranscribeCall{Ctx: ctx, AudioPath: audioPath})
	return p.Segments, p.Err
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
