// Package observe provides application-wide observability primitives for
// Shaberina: OpenTelemetry metrics, tracing helpers, and structured logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via a standard /metrics endpoint. A package-level default
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

// meterName is the instrumentation scope name used for all Shaberina metrics.
const meterName = "github.com/sabrina-ksks/shaberina"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// SynthesisDuration tracks text-to-speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// PlaybackDuration tracks voice playback duration per utterance.
	PlaybackDuration metric.Float64Histogram

	// --- Config cache counters, attributed by scope ("user" or "guild") ---

	// CacheHits counts config cache hits.
	CacheHits metric.Int64Counter

	// CacheMisses counts config cache misses.
	CacheMisses metric.Int64Counter

	// CacheEvictions counts LRU evictions.
	CacheEvictions metric.Int64Counter

	// CacheSaturations counts the first fill of each cache. At most one
	// increment per scope per process lifetime.
	CacheSaturations metric.Int64Counter

	// --- Activity counters ---

	// MessagesRead counts chat messages read aloud.
	MessagesRead metric.Int64Counter

	// CommandsHandled counts handled commands. Use with attribute:
	//   attribute.String("command", ...)
	CommandsHandled metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// synthesis and playback of short chat messages.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SynthesisDuration, err = m.Float64Histogram("shaberina.synthesis.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("shaberina.playback.duration",
		metric.WithDescription("Duration of voice playback per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Cache counters.
	if met.CacheHits, err = m.Int64Counter("shaberina.cache.hits",
		metric.WithDescription("Config cache hits by scope."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("shaberina.cache.misses",
		metric.WithDescription("Config cache misses by scope."),
	); err != nil {
		return nil, err
	}
	if met.CacheEvictions, err = m.Int64Counter("shaberina.cache.evictions",
		metric.WithDescription("Config cache LRU evictions by scope."),
	); err != nil {
		return nil, err
	}
	if met.CacheSaturations, err = m.Int64Counter("shaberina.cache.saturations",
		metric.WithDescription("First fills of a config cache by scope."),
	); err != nil {
		return nil, err
	}

	// Activity counters.
	if met.MessagesRead, err = m.Int64Counter("shaberina.messages.read",
		metric.WithDescription("Chat messages read aloud."),
	); err != nil {
		return nil, err
	}
	if met.CommandsHandled, err = m.Int64Counter("shaberina.commands.handled",
		metric.WithDescription("Handled commands by command name."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("shaberina.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
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

// RecordCommand records a handled command by name.
func (m *Metrics) RecordCommand(ctx context.Context, command string) {
	m.CommandsHandled.Add(ctx, 1,
		metric.WithAttributes(attribute.String("command", command)),
	)
}
