package observability

import (
	"context"
	"fmt"
	"io"
)

// Observability manages all observability components
type Observability struct {
	Logger  *Logger
	Metrics *MetricsCollector
	Tracer  *TracerProvider
	config  Config
}

// New loads configuration from configPath and builds every component.
func New(configPath string) (*Observability, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load observability config: %w", err)
	}
	return NewFromConfig(config, nil), nil
}

// NewFromConfig builds components from an already loaded configuration. Metrics
// and tracing failures fall back to no-op implementations.
func NewFromConfig(config Config, output io.Writer) *Observability {
	logger := NewLogger(LogConfig{
		Level:  config.Logging.Level,
		Format: config.Logging.Format,
		Output: output,
	})

	metrics, err := NewMetricsCollector(config.Metrics)
	if err != nil {
		logger.Error("Failed to initialize metrics", "error", err)
		metrics = &MetricsCollector{}
	}

	tracer, err := NewTracerProvider(config.Tracing)
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		tracer = NoopTracer()
	}

	logger.Info("Observability initialized",
		"log_level", config.Logging.Level,
		"metrics_enabled", config.Metrics.Enabled,
		"tracing_enabled", config.Tracing.Enabled,
	)

	return &Observability{
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
		config:  config,
	}
}

// Shutdown gracefully shuts down all observability components
func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil {
		return nil
	}
	o.Logger.Info("Shutting down observability")

	if err := o.Metrics.Shutdown(ctx); err != nil {
		o.Logger.Error("Failed to shutdown metrics", "error", err)
	}
	if err := o.Tracer.Shutdown(ctx); err != nil {
		o.Logger.Error("Failed to shutdown tracing", "error", err)
	}
	return nil
}

// Config returns the current configuration
func (o *Observability) Config() Config {
	return o.config
}
