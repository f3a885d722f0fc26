package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hantube/hantube/pkg/provider/stt"
	sttmock "github.com/hantube/hantube/pkg/provider/stt/mock"
)

func TestSTTFallback_Transcribe_PrimarySuccess(t *testing.T) {
	primary := &sttmock.Provider{
		Segments: []stt.Segment{{Start: 0, End: 2 * time.Second, Text: "你好"}},
	}
	secondary := &sttmock.Provider{}

	fb := NewSTTFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	segs, err := fb.Transcribe(context.Background(), "audio.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 || segs[0].Text != "你好" {
		t.Fatalf("segments = %+v, want one segment 你好", segs)
	}
	if len(primary.Calls) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.Calls))
	}
	if len(secondary.Calls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.Calls))
	}
}

func TestSTTFallback_Transcribe_Failover(t *testing.T) {
	primary := &sttmock.Provider{
		Err: errors.New("primary down"),
	}
	secondary := &sttmock.Provider{
		Segments: []stt.Segment{{Start: 0, End: time.Second, Text: "謝謝"}},
	}

	fb := NewSTTFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	segs, err := fb.Transcribe(context.Background(), "audio.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 || segs[0].Text != "謝謝" {
		t.Fatalf("segments = %+v, want one segment 謝謝", segs)
	}
	if len(secondary.Calls) != 1 {
		t.Fatalf("secondary called %d times, want 1", len(secondary.Calls))
	}
}

func TestSTTFallback_Transcribe_AllFail(t *testing.T) {
	primary := &sttmock.Provider{Err: errors.New("primary down")}
	secondary := &sttmock.Provider{Err: errors.New("secondary down")}

	fb := NewSTTFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Transcribe(context.Background(), "audio.wav")
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestSTTFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &sttmock.Provider{Err: errors.New("primary down")}
	secondary := &sttmock.Provider{
		Segments: []stt.Segment{{Text: "好"}},
	}

	fb := NewSTTFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	fb.AddFallback("secondary", secondary)

	// First call trips the primary's breaker, second call must skip it.
	for range 2 {
		if _, err := fb.Transcribe(context.Background(), "audio.wav"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(primary.Calls) != 1 {
		t.Fatalf("primary called %d times, want 1 (breaker open on second call)", len(primary.Calls))
	}
	if len(secondary.Calls) != 2 {
		t.Fatalf("secondary called %d times, want 2", len(secondary.Calls))
	}
}
