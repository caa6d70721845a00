package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	meterScope         = "github.com/ColeUyematsu/RoomMatchv2/internal/observability"
	defaultServiceName = "roommatch"
)

// latencyHistogramBoundaries are Prometheus-style buckets (seconds) for request and matching-run durations.
var latencyHistogramBoundaries = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30}

// MatcherMetrics is the single metrics interface for the service
// (HTTP, matching runs, best-match cache).
type MatcherMetrics interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
	RecordMatchingRun(ctx context.Context, outcome string, rounds int, duration time.Duration)
	RecordPairsCommitted(ctx context.Context, count int)
	RecordCacheLookup(ctx context.Context, hit bool)
}

// MeterProviderShutdown is the subset of the SDK MeterProvider needed for shutdown.
type MeterProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// MeterProviderConfig holds configuration for creating the MeterProvider and metrics.
type MeterProviderConfig struct {
	// ServiceName is used in the resource (default: roommatch).
	ServiceName string
}

// NewMeterProvider creates a MeterProvider with a Prometheus exporter and
// returns the provider, an HTTP handler for /metrics, and the MatcherMetrics
// backed by the provider's Meter. Caller must call provider.Shutdown on exit.
func NewMeterProvider(_ context.Context, cfg MeterProviderConfig) (MeterProviderShutdown, http.Handler, MatcherMetrics, error) {
	serviceNameVal := cfg.ServiceName
	if serviceNameVal == "" {
		serviceNameVal = defaultServiceName
	}

	// Use a single resource to avoid Schema URL conflicts when merging with resource.Default().
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceNameVal),
	)

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(
		prometheusexporter.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Kind: sdkmetric.InstrumentKindHistogram},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
				Boundaries: latencyHistogramBoundaries,
			}},
		)),
	)

	metrics, err := newMetrics(provider.Meter(meterScope))
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return provider, handler, metrics, nil
}

type matcherMetrics struct {
	requestDuration metric.Float64Histogram
	runDuration     metric.Float64Histogram
	runRounds       metric.Int64Histogram
	pairsCommitted  metric.Int64Counter
	cacheLookups    metric.Int64Counter
}

func newMetrics(meter metric.Meter) (MatcherMetrics, error) {
	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration by method, route and status class"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request duration histogram: %w", err)
	}

	runDuration, err := meter.Float64Histogram(
		"matching_run_duration_seconds",
		metric.WithDescription("Duration of full matching round loops"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create run duration histogram: %w", err)
	}

	runRounds, err := meter.Int64Histogram(
		"matching_run_rounds",
		metric.WithDescription("Rounds executed per matching run"),
	)
	if err != nil {
		return nil, fmt.Errorf("create run rounds histogram: %w", err)
	}

	pairsCommitted, err := meter.Int64Counter(
		"matching_pairs_committed_total",
		metric.WithDescription("Pairs committed by matching rounds"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pairs counter: %w", err)
	}

	cacheLookups, err := meter.Int64Counter(
		"best_match_cache_lookups_total",
		metric.WithDescription("Best-match cache lookups by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache lookups counter: %w", err)
	}

	return &matcherMetrics{
		requestDuration: requestDuration,
		runDuration:     runDuration,
		runRounds:       runRounds,
		pairsCommitted:  pairsCommitted,
		cacheLookups:    cacheLookups,
	}, nil
}

func (m *matcherMetrics) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status_class", statusClass),
	))
}

func (m *matcherMetrics) RecordMatchingRun(ctx context.Context, outcome string, rounds int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.runDuration.Record(ctx, duration.Seconds(), attrs)
	m.runRounds.Record(ctx, int64(rounds), attrs)
}

func (m *matcherMetrics) RecordPairsCommitted(ctx context.Context, count int) {
	m.pairsCommitted.Add(ctx, int64(count))
}

func (m *matcherMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
