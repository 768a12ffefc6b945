// Package adaptation wires the analyzer, strategy builder, transformer and
// ranker into one service object with a bounded adaptation cache and
// in-memory metrics.
package adaptation

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"wayfarer/internal/activity"
	"wayfarer/internal/analyzer"
	"wayfarer/internal/domain"
	wferrors "wayfarer/internal/errors"
	"wayfarer/internal/location"
	"wayfarer/internal/logging"
	"wayfarer/internal/observability"
	"wayfarer/internal/recommend"
	"wayfarer/internal/signalcache"
	"wayfarer/internal/strategy"
	"wayfarer/internal/transform"
	"wayfarer/internal/weather"
)

// Library is the story repository the engine reads from.
type Library interface {
	Get(id string) (*domain.StoryContent, bool)
	All() []*domain.StoryContent
}

// Config tunes the engine and the components it builds.
type Config struct {
	CacheCapacity     int
	SuccessThreshold  float64
	StrategyCacheSize int
	Seed              int64

	Weather    weather.Config
	Location   location.Config
	Activity   activity.Thresholds
	Insights   analyzer.Weights
	Confidence transform.ConfidenceWeights
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{
		CacheCapacity:     DefaultCacheCapacity,
		SuccessThreshold:  DefaultSuccessThreshold,
		StrategyCacheSize: 256,
		Seed:              1,
		Weather:           weather.DefaultConfig(),
		Location:          location.DefaultConfig(),
		Activity:          activity.DefaultThresholds(),
		Insights:          analyzer.DefaultWeights(),
		Confidence:        transform.DefaultConfidenceWeights(),
	}
}

type options struct {
	config     Config
	rng        *rand.Rand
	now        func() time.Time
	logger     logging.Logger
	tracer     *observability.TracerProvider
	collector  *observability.MetricsCollector
	registerer prometheus.Registerer
}

// Option customises New.
type Option func(*options)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithRand injects the random source for interaction prompts. Without it
// the engine seeds one from Config.Seed.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithClock replaces time.Now everywhere in the engine.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the base logger; components derive from it.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logging.OrNop(logger) }
}

// WithTracer emits spans for analysis, adaptation and ranking.
func WithTracer(tp *observability.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

// WithCollector records analysis metrics through OpenTelemetry.
func WithCollector(c *observability.MetricsCollector) Option {
	return func(o *options) { o.collector = c }
}

// WithRegisterer registers the Prometheus collectors on reg. Without it no
// Prometheus metrics are kept.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// Engine is the entry point for consumers. Build one per process and share
// it; all methods are safe for concurrent use.
type Engine struct {
	library     Library
	analyzer    *analyzer.Analyzer
	builder     *strategy.Builder
	transformer *transform.Transformer
	ranker      *recommend.Ranker
	cache       *fifoCache
	stats       *tracker

	prom      *Metrics
	collector *observability.MetricsCollector
	tracer    *observability.TracerProvider
	logger    logging.Logger
	now       func() time.Time
}

// New builds an engine over the library and signal providers. Either
// provider may be nil; the matching signal then always uses its default.
func New(library Library, weatherProvider weather.Provider, places location.PlaceProvider, opts ...Option) (*Engine, error) {
	o := options{
		config: DefaultConfig(),
		now:    time.Now,
		logger: logging.Nop(),
		tracer: observability.NoopTracer(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = observability.NoopTracer()
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(o.config.Seed))
	}
	threshold := o.config.SuccessThreshold
	if threshold <= 0 {
		threshold = DefaultSuccessThreshold
	}

	var (
		prom     *Metrics
		observer signalcache.Observer
	)
	if o.registerer != nil {
		prom = MustNewMetrics(o.registerer)
		observer = prom
	}

	wr, err := weather.NewResolver(weatherProvider, o.config.Weather, o.logger, observer, o.now)
	if err != nil {
		return nil, fmt.Errorf("weather resolver: %w", err)
	}
	lr, err := location.NewResolver(places, o.config.Location, o.logger, observer, o.now)
	if err != nil {
		return nil, fmt.Errorf("location resolver: %w", err)
	}
	builder, err := strategy.NewBuilder(o.config.StrategyCacheSize, o.logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		library: library,
		analyzer: analyzer.New(wr, lr, activity.NewInferrer(o.config.Activity),
			analyzer.WithClock(o.now),
			analyzer.WithWeights(o.config.Insights),
			analyzer.WithLogger(o.logger),
			analyzer.WithMetrics(o.collector),
			analyzer.WithTracer(o.tracer),
		),
		builder: builder,
		transformer: transform.New(
			transform.WithRand(o.rng),
			transform.WithConfidenceWeights(o.config.Confidence),
			transform.WithClock(o.now),
			transform.WithLogger(o.logger),
		),
		stats:     newTracker(threshold),
		prom:      prom,
		collector: o.collector,
		tracer:    o.tracer,
		logger:    o.logger,
		now:       o.now,
	}
	e.cache, err = newFIFOCache(o.config.CacheCapacity, func(key string) {
		e.prom.IncEviction()
		e.logger.Debug("evicted adaptation %s", key)
	})
	if err != nil {
		return nil, err
	}
	var catalog recommend.Catalog
	if library != nil {
		catalog = library
	}
	e.ranker = recommend.NewRanker(catalog, e.transformer, e.lookup, o.logger)
	return e, nil
}

// AnalyzeContext fuses the raw signals into a context snapshot. It never
// fails; unavailable signals fall back to defaults.
func (e *Engine) AnalyzeContext(ctx context.Context, sample domain.LocationSample, movement domain.MovementAnalysis, reading *domain.WeatherData) domain.ContextualEnvironment {
	return e.analyzer.AnalyzeContext(ctx, sample, movement, reading)
}

// GenerateInsights derives suggestions, risks and confidence from env.
func (e *Engine) GenerateInsights(ctx context.Context, env domain.ContextualEnvironment) domain.ContextualInsights {
	return e.analyzer.GenerateInsights(ctx, env)
}

// RecentActivities returns the rolling activity history.
func (e *Engine) RecentActivities() []domain.ActivityContext {
	return e.analyzer.RecentActivities()
}

// CreateStrategy returns the adaptation strategy for env and prefs. The
// story is only used for logging; strategies depend on context alone.
func (e *Engine) CreateStrategy(env domain.ContextualEnvironment, insights domain.ContextualInsights, story *domain.StoryContent, prefs domain.Preferences) domain.AdaptationStrategy {
	s := e.builder.Build(env, insights, prefs)
	wferrors.Invariant(s.ContextHash == env.Hash(), "strategy",
		"strategy hash %q does not match context %q", s.ContextHash, env.Hash())
	if story != nil {
		e.logger.Debug("strategy for %s in %s: reduction=%.2f", story.ID, s.ContextHash, s.LengthReduction)
	}
	return s
}

// Adapt returns the adaptation of contentID for env, serving it from the
// cache when the same content was adapted for an equivalent context. An
// unknown id yields nil and false.
func (e *Engine) Adapt(ctx context.Context, contentID string, env domain.ContextualEnvironment, insights domain.ContextualInsights, prefs domain.Preferences) (*domain.AdaptedContent, bool) {
	started := e.now()
	hash := env.Hash()
	_, span := e.tracer.StartSpan(ctx, observability.SpanContentAdapt, observability.ContentAttrs(contentID, hash)...)
	defer span.End()

	if e.library == nil {
		span.SetStatus(codes.Error, wferrors.ErrContentNotFound.Error())
		return nil, false
	}
	story, ok := e.library.Get(contentID)
	if !ok {
		e.logger.Warn("adapt %s: %v", contentID, wferrors.ErrContentNotFound)
		span.SetStatus(codes.Error, wferrors.ErrContentNotFound.Error())
		return nil, false
	}

	key := CacheKey(contentID, hash, prefs.Key())
	adapted, hit := e.cache.get(key)
	e.prom.CacheLookup("adaptation", hit)
	if !hit {
		s := e.CreateStrategy(env, insights, story, prefs)
		adapted = e.transformer.Adapt(story, s, env)
		var memo *domain.StoryContent
		if prefs.Key() == "" {
			memo = story
		}
		e.cache.put(key, adapted, memo)
	}

	elapsed := e.now().Sub(started)
	successful := e.stats.record(adapted.Confidence, elapsed, hit, env.Activity)
	e.prom.ObserveAdaptation(string(adapted.Format), successful, adapted.Confidence, elapsed)
	span.SetAttributes(
		attribute.Bool(observability.AttrCacheHit, hit),
		attribute.String(observability.AttrFormat, string(adapted.Format)),
		attribute.Float64(observability.AttrConfidence, adapted.Confidence),
	)

	out := adapted
	return &out, true
}

// Recommend ranks the library for env and returns at most maxResults
// recommendations; maxResults <= 0 means no limit.
func (e *Engine) Recommend(ctx context.Context, env domain.ContextualEnvironment, insights domain.ContextualInsights, maxResults int) []domain.ContentRecommendation {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanRecommend,
		attribute.String(observability.AttrContextHash, env.Hash()))
	defer span.End()

	recs := e.ranker.Recommend(env, insights, maxResults)
	span.SetAttributes(attribute.Int(observability.AttrResults, len(recs)))
	e.collector.RecordRecommendations(ctx, string(env.Activity), len(recs))
	return recs
}

// Metrics returns a snapshot of the adaptation metrics.
func (e *Engine) Metrics() domain.AdaptationMetrics {
	return e.stats.snapshot()
}

// CachedKeys lists the adaptation cache keys, oldest first.
func (e *Engine) CachedKeys() []string {
	return e.cache.keys()
}

// Reset clears every cache, the story memos, the activity history and the
// metrics.
func (e *Engine) Reset() {
	e.cache.purge()
	if e.library != nil {
		for _, story := range e.library.All() {
			story.ForgetAll()
		}
	}
	e.builder.Purge()
	e.analyzer.Reset()
	e.stats.reset()
	e.logger.Info("adaptation engine reset")
}

func (e *Engine) lookup(story *domain.StoryContent, env domain.ContextualEnvironment) (domain.AdaptedContent, bool) {
	return e.cache.get(CacheKey(story.ID, env.Hash(), ""))
}
