package observability

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector records context-analysis metrics through OpenTelemetry and
// exposes them in Prometheus format. A zero collector is a valid no-op.
type MetricsCollector struct {
	provider *sdkmetric.MeterProvider
	meter    metric.Meter

	analyses          metric.Int64Counter
	degradedSignals   metric.Int64Counter
	analysisLatency   metric.Float64Histogram
	insightConfidence metric.Float64Histogram
	recommendations   metric.Int64Counter

	gatherer         promclient.Gatherer
	prometheusServer *http.Server
}

// MetricsConfig configures the metrics collector
type MetricsConfig struct {
	Enabled        bool `yaml:"enabled"`
	PrometheusPort int  `yaml:"prometheus_port"`

	// Registry receives the exporter; nil uses the Prometheus default registry.
	Registry *promclient.Registry `yaml:"-"`
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	var (
		registerer promclient.Registerer = promclient.DefaultRegisterer
		gatherer   promclient.Gatherer   = promclient.DefaultGatherer
	)
	if config.Registry != nil {
		registerer = config.Registry
		gatherer = config.Registry
	}

	exporter, err := prometheus.New(prometheus.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	meter := provider.Meter("wayfarer")

	analyses, err := meter.Int64Counter(
		"wayfarer.context.analyses",
		metric.WithDescription("Context analyses performed"),
		metric.WithUnit("{analysis}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyses counter: %w", err)
	}

	degradedSignals, err := meter.Int64Counter(
		"wayfarer.context.degraded_signals",
		metric.WithDescription("Signals that fell back to defaults during analysis"),
		metric.WithUnit("{signal}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create degraded_signals counter: %w", err)
	}

	analysisLatency, err := meter.Float64Histogram(
		"wayfarer.context.latency",
		metric.WithDescription("Context analysis latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create latency histogram: %w", err)
	}

	insightConfidence, err := meter.Float64Histogram(
		"wayfarer.insights.confidence",
		metric.WithDescription("Confidence of generated contextual insights"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create insight confidence histogram: %w", err)
	}

	recommendations, err := meter.Int64Counter(
		"wayfarer.recommendations",
		metric.WithDescription("Recommendations returned to consumers"),
		metric.WithUnit("{recommendation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recommendations counter: %w", err)
	}

	collector := &MetricsCollector{
		provider:          provider,
		meter:             meter,
		analyses:          analyses,
		degradedSignals:   degradedSignals,
		analysisLatency:   analysisLatency,
		insightConfidence: insightConfidence,
		recommendations:   recommendations,
		gatherer:          gatherer,
	}

	if config.PrometheusPort > 0 {
		if err := collector.StartPrometheusServer(config.PrometheusPort); err != nil {
			return nil, fmt.Errorf("failed to start prometheus server: %w", err)
		}
	}

	return collector, nil
}

// Handler returns the Prometheus scrape handler for the collector's registry.
func (m *MetricsCollector) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// StartPrometheusServer starts the Prometheus metrics server
func (m *MetricsCollector) StartPrometheusServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	m.prometheusServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Prometheus metrics server listening on :%d", port)
		if err := m.prometheusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Prometheus server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics collector
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	if m.prometheusServer != nil {
		if err := m.prometheusServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	if m.provider != nil {
		return m.provider.Shutdown(ctx)
	}
	return nil
}

// RecordAnalysis records one completed context analysis.
func (m *MetricsCollector) RecordAnalysis(ctx context.Context, movement, activity string, latency time.Duration, weatherResolved, locationResolved bool) {
	if m == nil || m.analyses == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrMovement, movement),
		attribute.String(AttrActivity, activity),
	}
	m.analyses.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.analysisLatency.Record(ctx, latency.Seconds(), metric.WithAttributes(attribute.String(AttrMovement, movement)))

	if !weatherResolved {
		m.degradedSignals.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrSignal, "weather")))
	}
	if !locationResolved {
		m.degradedSignals.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrSignal, "location")))
	}
}

// RecordInsightConfidence records the confidence of generated insights.
func (m *MetricsCollector) RecordInsightConfidence(ctx context.Context, confidence float64) {
	if m == nil || m.insightConfidence == nil {
		return
	}
	m.insightConfidence.Record(ctx, confidence)
}

// RecordRecommendations records how many recommendations were returned.
func (m *MetricsCollector) RecordRecommendations(ctx context.Context, activity string, count int) {
	if m == nil || m.recommendations == nil {
		return
	}
	m.recommendations.Add(ctx, int64(count), metric.WithAttributes(attribute.String(AttrActivity, activity)))
}

// Common attribute keys
const (
	AttrMovement    = "wayfarer.movement"
	AttrActivity    = "wayfarer.activity"
	AttrSignal      = "wayfarer.signal"
	AttrContentID   = "wayfarer.content_id"
	AttrContextHash = "wayfarer.context_hash"
	AttrCacheHit    = "wayfarer.cache_hit"
	AttrConfidence  = "wayfarer.confidence"
	AttrFormat      = "wayfarer.format"
	AttrResults     = "wayfarer.results"
)

// ContentAttrs creates content attributes
func ContentAttrs(contentID, contextHash string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrContentID, contentID),
		attribute.String(AttrContextHash, contextHash),
	}
}
