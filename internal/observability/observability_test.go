package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWithContextAddsIDs(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(LogConfig{Level: "info", Format: "text", Output: buf})

	ctx := ContextWithTraceID(context.Background(), "trace-123")
	ctx = ContextWithRequestID(ctx, "req-9")
	logger.InfoContext(ctx, "analyzed")

	out := buf.String()
	assert.Contains(t, out, "trace_id=trace-123")
	assert.Contains(t, out, "request_id=req-9")
	assert.Contains(t, out, "analyzed")
}

func TestLoggerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(LogConfig{Level: "warn", Format: "json", Output: buf})

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestMetricsCollectorDisabledIsNoop(t *testing.T) {
	collector, err := NewMetricsCollector(MetricsConfig{Enabled: false})
	require.NoError(t, err)

	collector.RecordAnalysis(context.Background(), "walking", "leisure", time.Millisecond, false, false)
	collector.RecordInsightConfidence(context.Background(), 0.5)
	collector.RecordRecommendations(context.Background(), "leisure", 3)
	require.NoError(t, collector.Shutdown(context.Background()))

	var nilCollector *MetricsCollector
	nilCollector.RecordAnalysis(context.Background(), "walking", "leisure", time.Millisecond, true, true)
}

func TestMetricsCollectorExportsToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	collector, err := NewMetricsCollector(MetricsConfig{Enabled: true, Registry: reg})
	require.NoError(t, err)
	defer func() { _ = collector.Shutdown(context.Background()) }()

	ctx := context.Background()
	collector.RecordAnalysis(ctx, "walking", "sightseeing", 20*time.Millisecond, false, true)
	collector.RecordInsightConfidence(ctx, 0.8)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, family := range families {
		names = append(names, family.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "wayfarer_context_analyses")
	assert.Contains(t, joined, "wayfarer_context_degraded_signals")
	assert.Contains(t, joined, "wayfarer_insights_confidence")
}

func TestNoopTracerStartsSpans(t *testing.T) {
	tracer, err := NewTracerProvider(TracingConfig{Enabled: false})
	require.NoError(t, err)

	ctx, span := tracer.StartSpan(ContextWithRequestID(context.Background(), "r1"), SpanContextAnalyze)
	require.NotNil(t, ctx)
	span.End()
	require.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewTracerProviderRejectsUnknownExporter(t *testing.T) {
	_, err := NewTracerProvider(TracingConfig{Enabled: true, Exporter: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestNewFromConfigFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = false
	buf := &bytes.Buffer{}

	obs := NewFromConfig(cfg, buf)
	require.NotNil(t, obs.Logger)
	require.NotNil(t, obs.Metrics)
	require.NotNil(t, obs.Tracer)
	assert.Contains(t, buf.String(), "Observability initialized")
	require.NoError(t, obs.Shutdown(context.Background()))
}
