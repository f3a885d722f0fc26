// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a batch transcription engine (a local whisper.cpp
// model, a whisper-server instance, or a hosted API) and exposes a uniform
// interface: it takes a path to an extracted audio file and returns the
// recognised speech as a sequence of timed segments. The segments feed the
// transcript correction pipeline, which refines each one with an LLM before
// presenting it to the learner.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"time"
)

// Segment is a single stretch of recognised speech with its position in the
// source audio. Start and End are offsets from the beginning of the file.
type Segment struct {
	// Start is the offset at which the segment begins.
	Start time.Duration `json:"start"`

	// End is the offset at which the segment ends. Always >= Start.
	End time.Duration `json:"end"`

	// Text is the recognised speech, trimmed of surrounding whitespace. For
	// Chinese-language audio the script (Simplified vs Traditional) depends on
	// the model; callers normalise it downstream rather than relying on the
	// engine's output script.
	Text string `json:"text"`
}

// Provider is the abstraction over any speech-to-text backend.
//
// Implementations must be safe for concurrent use. Multiple transcriptions
// may run simultaneously (e.g., several videos being processed at once).
type Provider interface {
	// Transcribe runs speech recognition over the audio file at audioPath and
	// returns the recognised segments in chronological order. The file is
	// expected to be 16 kHz mono 16-bit PCM WAV, the format the media
	// extraction layer produces.
	//
	// Returns an error if the file cannot be read, the engine fails, or ctx is
	// cancelled. An audio file containing no recognisable speech yields an
	// empty slice and a nil error.
	Transcribe(ctx context.Context, audioPath string) ([]Segment, error)
}
