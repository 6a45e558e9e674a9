// Package observe provides observability primitives for the reading
// adventure service: OpenTelemetry metrics, tracing helpers, and HTTP
// middleware tying them together.
//
// Metrics are recorded through the OTel Metrics API and exported through a
// Prometheus bridge (see [InitProvider]) so the standard /metrics endpoint
// keeps working. [DefaultMetrics] is a package-level instance for wiring
// convenience; tests should build their own via [NewMetrics] with a manual
// reader.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all service metrics.
const meterName = "github.com/asherquest/asherquest"

// Metrics holds the service's metric instruments. All fields are safe for
// concurrent use.
type Metrics struct {
	// Latency histograms per AI backend kind.

	// STTDuration tracks batch speech-to-text latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks completion latency (hooks, validation, chat).
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks narration synthesis latency.
	TTSDuration metric.Float64Histogram

	// ImageDuration tracks adventure illustration latency.
	ImageDuration metric.Float64Histogram

	// ProviderRequests counts backend API calls by provider, kind, and
	// status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts backend errors by provider and kind.
	ProviderErrors metric.Int64Counter

	// ValidationFallbacks counts continuation verdicts produced by the
	// local heuristic instead of the model.
	ValidationFallbacks metric.Int64Counter

	// HookFallbacks counts narrator hooks served from canned text.
	HookFallbacks metric.Int64Counter

	// ActiveSessions tracks live learner sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveRecordings tracks microphone recordings in progress.
	ActiveRecordings metric.Int64UpDownCounter

	// HTTPRequestDuration tracks request latency by method and path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds, sized for AI backend
// round trips.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histogram := func(name, desc string) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = m.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
		return h
	}
	counter := func(name, desc string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = m.Int64Counter(name, metric.WithDescription(desc))
		return c
	}

	met.STTDuration = histogram("asherquest.stt.duration",
		"Latency of batch speech-to-text transcription.")
	met.LLMDuration = histogram("asherquest.llm.duration",
		"Latency of chat-completion calls.")
	met.TTSDuration = histogram("asherquest.tts.duration",
		"Latency of narration synthesis.")
	met.ImageDuration = histogram("asherquest.image.duration",
		"Latency of adventure illustration generation.")

	met.ProviderRequests = counter("asherquest.provider.requests",
		"Total backend API requests by provider, kind, and status.")
	met.ProviderErrors = counter("asherquest.provider.errors",
		"Total backend errors by provider and kind.")
	met.ValidationFallbacks = counter("asherquest.flow.validation_fallbacks",
		"Continuation verdicts produced by the local heuristic.")
	met.HookFallbacks = counter("asherquest.flow.hook_fallbacks",
		"Narrator hooks served from canned text.")

	if err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("asherquest.active_sessions",
		metric.WithDescription("Live learner sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveRecordings, err = m.Int64UpDownCounter("asherquest.active_recordings",
		metric.WithDescription("Microphone recordings in progress."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("asherquest.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, created on
// first call from the global meter provider.
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

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest increments the request counter with the standard
// attribute set and observes the call's duration on the kind's histogram.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string, elapsed time.Duration) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)

	var hist metric.Float64Histogram
	switch kind {
	case "stt":
		hist = m.STTDuration
	case "llm":
		hist = m.LLMDuration
	case "tts":
		hist = m.TTSDuration
	case "image":
		hist = m.ImageDuration
	}
	if hist != nil {
		hist.Record(ctx, elapsed.Seconds(),
			metric.WithAttributes(attribute.String("provider", provider)),
		)
	}
}

// RecordProviderError increments the error counter.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordValidationFallback counts one heuristic continuation verdict.
func (m *Metrics) RecordValidationFallback(ctx context.Context, reason string) {
	m.ValidationFallbacks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordHookFallback counts one canned narrator hook.
func (m *Metrics) RecordHookFallback(ctx context.Context) {
	m.HookFallbacks.Add(ctx, 1)
}
