// Package observe provides application-wide observability primitives for
// hantube: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all hantube metrics.
const meterName = "github.com/hantube/hantube"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency per audio file.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks LLM inference latency.
	LLMDuration metric.Float64Histogram

	// EmbeddingDuration tracks embedding batch latency during index builds
	// and query embedding during retrieval.
	EmbeddingDuration metric.Float64Histogram

	// AnalysisDuration tracks end-to-end grammar analysis latency per sentence
	// (retrieval plus generation plus parsing).
	AnalysisDuration metric.Float64Histogram

	// MediaDuration tracks audio download and conversion latency per video.
	MediaDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// Corrections counts segment correction outcomes. Use with attribute:
	//   attribute.String("outcome", ...) — "applied", "rolled_back", "skipped", or "failed"
	Corrections metric.Int64Counter

	// Analyses counts analyzed sentences. Use with attributes:
	//   attribute.String("status", ...), attribute.String("matched", ...)
	Analyses metric.Int64Counter

	// VocabCards counts generated vocabulary cards. Use with attribute:
	//   attribute.String("status", ...)
	VocabCards metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveStreams tracks the number of in-flight streaming jobs. Use with
	// attribute: attribute.String("stream", ...) — "transcribe" or "analyze"
	ActiveStreams metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The upper
// buckets are wide because whole-video transcription and download jobs run
// for minutes.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("hantube.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription per audio file."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("hantube.llm.duration",
		metric.WithDescription("Latency of LLM inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EmbeddingDuration, err = m.Float64Histogram("hantube.embedding.duration",
		metric.WithDescription("Latency of embedding calls during index builds and retrieval."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("hantube.analysis.duration",
		metric.WithDescription("End-to-end grammar analysis latency per sentence."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MediaDuration, err = m.Float64Histogram("hantube.media.duration",
		metric.WithDescription("Audio download and conversion latency per video."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("hantube.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.Corrections, err = m.Int64Counter("hantube.corrections",
		metric.WithDescription("Total segment correction outcomes."),
	); err != nil {
		return nil, err
	}
	if met.Analyses, err = m.Int64Counter("hantube.analyses",
		metric.WithDescription("Total analyzed sentences by status and grammar match."),
	); err != nil {
		return nil, err
	}
	if met.VocabCards, err = m.Int64Counter("hantube.vocab.cards",
		metric.WithDescription("Total generated vocabulary cards by status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("hantube.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveStreams, err = m.Int64UpDownCounter("hantube.active_streams",
		metric.WithDescription("Number of in-flight streaming jobs by stream type."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("hantube.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordCorrection is a convenience method that records a segment correction
// outcome. Outcome is one of "applied", "rolled_back", "skipped", or "failed".
func (m *Metrics) RecordCorrection(ctx context.Context, outcome string) {
	m.Corrections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordAnalysis is a convenience method that records an analyzed sentence.
func (m *Metrics) RecordAnalysis(ctx context.Context, status string, matched bool) {
	matchedStr := "false"
	if matched {
		matchedStr = "true"
	}
	m.Analyses.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
			attribute.String("matched", matchedStr),
		),
	)
}

// RecordVocabCard is a convenience method that records a generated
// vocabulary card.
func (m *Metrics) RecordVocabCard(ctx context.Context, status string) {
	m.VocabCards.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
