// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/hantube/hantube/pkg/provider/stt"
)

// Compile-time assertion that NativeProvider satisfies stt.Provider.
var _ stt.Provider = (*NativeProvider)(nil)

// nativeSampleRate is the only sample rate whisper.cpp accepts.
const nativeSampleRate = 16000

// NativeProvider implements stt.Provider using whisper.cpp Go bindings (CGO),
// eliminating HTTP overhead entirely. The model is loaded once at startup and
// shared across all concurrent transcriptions; each Transcribe call creates
// its own whisper context, which is the unit of thread confinement in the
// bindings.
type NativeProvider struct {
	model    whisperlib.Model
	language string

	// mu serialises context creation; whisper contexts themselves are used by
	// a single goroutine only.
	mu sync.Mutex
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the language code for transcription (e.g., "zh",
// "en", "auto"). Defaults to "zh".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. The model is loaded once and shared across all
// concurrent transcriptions. The caller must call Close when the provider is
// no longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &NativeProvider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe implements stt.Provider by decoding the WAV file at audioPath,
// running whisper.cpp inference in-process, and returning the timed segments.
//
// The audio must be 16 kHz 16-bit PCM WAV; multi-channel input is down-mixed
// to mono before inference.
func (p *NativeProvider) Transcribe(ctx context.Context, audioPath string) ([]stt.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: read audio file: %w", err)
	}

	pcm, sampleRate, channels, err := decodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("whisper: decode %q: %w", audioPath, err)
	}
	if sampleRate != nativeSampleRate {
		return nil, fmt.Errorf("whisper: unsupported sample rate %d Hz (need %d)", sampleRate, nativeSampleRate)
	}

	samples := pcmToFloat32Mono(pcm, channels)

	// Each inference gets a fresh whisper context. Contexts are NOT
	// thread-safe, but the model can be shared across goroutines.
	p.mu.Lock()
	wctx, err := p.model.NewContext()
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", p.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var segments []stt.Segment
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("whisper: cancelled while reading segments: %w", err)
		}
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		segments = append(segments, stt.Segment{
			Start: segment.Start,
			End:   segment.End,
			Text:  text,
		})
	}

	return segments, nil
}
