// Package analyzer fuses raw signals into a ContextualEnvironment and draws
// ContextualInsights from it.
package analyzer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"wayfarer/internal/activity"
	"wayfarer/internal/domain"
	"wayfarer/internal/environment"
	"wayfarer/internal/location"
	"wayfarer/internal/logging"
	"wayfarer/internal/observability"
	"wayfarer/internal/weather"
)

// ConsistencyWindow is how many recent activities must agree for the
// consistency bonus.
const ConsistencyWindow = 3

// Analyzer produces context snapshots. It owns the weather and location
// caches and the activity history; everything else is derived per call.
type Analyzer struct {
	weather  *weather.Resolver
	location *location.Resolver
	inferrer *activity.Inferrer
	weights  Weights

	now     func() time.Time
	logger  logging.Logger
	metrics *observability.MetricsCollector
	tracer  *observability.TracerProvider
}

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithWeights overrides the confidence weights.
func WithWeights(w Weights) Option {
	return func(a *Analyzer) { a.weights = w }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(a *Analyzer) { a.logger = logging.OrNop(logger) }
}

// WithMetrics records analyses on the collector.
func WithMetrics(m *observability.MetricsCollector) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithTracer emits a span per analysis.
func WithTracer(tp *observability.TracerProvider) Option {
	return func(a *Analyzer) {
		if tp != nil {
			a.tracer = tp
		}
	}
}

// New builds an analyzer over the given resolvers and inferrer.
func New(w *weather.Resolver, l *location.Resolver, inf *activity.Inferrer, opts ...Option) *Analyzer {
	a := &Analyzer{
		weather:  w,
		location: l,
		inferrer: inf,
		weights:  DefaultWeights(),
		now:      time.Now,
		logger:   logging.Nop(),
		tracer:   observability.NoopTracer(),
	}
	if a.inferrer == nil {
		a.inferrer = activity.NewInferrer(activity.DefaultThresholds())
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeContext builds the environment for one sample. A supplied weather
// reading is used as is. Provider failures never surface: the affected
// signal falls back to its default and is flagged unresolved.
func (a *Analyzer) AnalyzeContext(ctx context.Context, sample domain.LocationSample, movement domain.MovementAnalysis, supplied *domain.WeatherData) domain.ContextualEnvironment {
	started := a.now()
	ctx, span := a.tracer.StartSpan(ctx, observability.SpanContextAnalyze,
		attribute.String(observability.AttrMovement, string(movement.Mode)))
	defer span.End()

	at := sample.Timestamp
	if at.IsZero() {
		at = started
	}

	var (
		wx          domain.WeatherData
		wxResolved  bool
		loc         domain.LocationContext
		locResolved bool
	)

	var g errgroup.Group
	g.Go(func() error {
		if supplied != nil {
			wx, wxResolved = *supplied, true
			return nil
		}
		if a.weather == nil {
			return nil
		}
		reading, err := a.weather.Resolve(ctx, sample.Coordinate)
		if err != nil {
			a.logger.Warn("weather unavailable for %s, using defaults: %v", sample.BucketKey(2), err)
			return nil
		}
		wx, wxResolved = reading, true
		return nil
	})
	g.Go(func() error {
		if a.location == nil {
			return nil
		}
		resolved, err := a.location.Resolve(ctx, sample)
		if err != nil {
			a.logger.Warn("location context unavailable for %s, using defaults: %v", sample.BucketKey(3), err)
			return nil
		}
		loc, locResolved = resolved, true
		return nil
	})
	_ = g.Wait()

	if !wxResolved {
		wx = domain.DefaultWeather(at)
	}
	if !locResolved {
		elevation := 0.0
		if sample.Altitude != nil {
			elevation = *sample.Altitude
		}
		loc = domain.DefaultLocationContext(elevation)
	}

	tod := environment.TimeOfDayAt(at)
	act := a.inferrer.Infer(movement, loc, tod)
	available := AvailableTime(movement, act, wx.Condition)
	attention := Attention(movement, loc, tod)

	env := domain.ContextualEnvironment{
		Timestamp:         at,
		Coordinate:        sample.Coordinate,
		TimeOfDay:         tod,
		Season:            environment.SeasonAt(at),
		Weather:           &wx,
		Location:          loc,
		Movement:          movement,
		Activity:          act,
		AvailableTime:     available,
		Attention:         attention,
		ContentPreference: Preference(available, attention),
		WeatherResolved:   wxResolved,
		LocationResolved:  locResolved,
	}

	span.SetAttributes(
		attribute.String(observability.AttrActivity, string(act)),
		attribute.String(observability.AttrContextHash, env.Hash()),
	)
	a.metrics.RecordAnalysis(ctx, string(movement.Mode), string(act), a.now().Sub(started), wxResolved, locResolved)
	a.logger.Debug("analyzed context %s (weather=%t location=%t)", env.Hash(), wxResolved, locResolved)
	return env
}

// GenerateInsights draws suggestions, risks and recommendations from env.
func (a *Analyzer) GenerateInsights(ctx context.Context, env domain.ContextualEnvironment) domain.ContextualInsights {
	_, span := a.tracer.StartSpan(ctx, observability.SpanInsightsGenerate,
		attribute.String(observability.AttrContextHash, env.Hash()))
	defer span.End()

	insights := domain.ContextualInsights{
		PrimaryContext:  primaryContext(env),
		Suggestions:     suggestions(env),
		RiskFactors:     riskFactors(env),
		Recommendations: recommendations(env),
		Confidence:      confidence(env, a.inferrer.Consistent(ConsistencyWindow), a.weights),
	}
	span.SetAttributes(attribute.Float64(observability.AttrConfidence, insights.Confidence))
	a.metrics.RecordInsightConfidence(ctx, insights.Confidence)
	return insights
}

// RecentActivities returns the rolling activity history, oldest first.
func (a *Analyzer) RecentActivities() []domain.ActivityContext {
	return a.inferrer.Recent()
}

// Reset clears the caches and the activity history.
func (a *Analyzer) Reset() {
	if a.weather != nil {
		a.weather.Purge()
	}
	if a.location != nil {
		a.location.Purge()
	}
	a.inferrer.Reset()
}
