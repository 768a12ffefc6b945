package location

import (
	"context"
	"errors"
	"time"

	"wayfarer/internal/domain"
	"wayfarer/internal/environment"
	wferrors "wayfarer/internal/errors"
	"wayfarer/internal/logging"
	"wayfarer/internal/signalcache"
)

const (
	// DefaultTTL is the freshness window of cached place data.
	DefaultTTL = 60 * time.Minute
	// DefaultBucketDecimals rounds coordinates to roughly 100 m cells.
	DefaultBucketDecimals = 3
	// DefaultSearchRadius bounds the POI search in metres.
	DefaultSearchRadius = 1000.0
)

var errNoProvider = errors.New("no place provider configured")

// Config configures a Resolver.
type Config struct {
	TTL            time.Duration
	BucketDecimals int
	MaxEntries     int
	SearchRadius   float64
	Breaker        wferrors.CircuitBreakerConfig
}

// DefaultConfig returns the standard location cache settings.
func DefaultConfig() Config {
	return Config{
		TTL:            DefaultTTL,
		BucketDecimals: DefaultBucketDecimals,
		MaxEntries:     1024,
		SearchRadius:   DefaultSearchRadius,
		Breaker:        wferrors.DefaultCircuitBreakerConfig(),
	}
}

// Resolver turns a sample into a LocationContext using cached place data.
type Resolver struct {
	provider PlaceProvider
	radius   float64
	cache    *signalcache.Cache[Places]
}

// NewResolver builds a resolver. A nil provider makes every lookup fail.
func NewResolver(provider PlaceProvider, cfg Config, logger logging.Logger, observer signalcache.Observer, now func() time.Time) (*Resolver, error) {
	cache, err := signalcache.New[Places](signalcache.Config{
		Name:     "location",
		MaxSize:  cfg.MaxEntries,
		TTL:      cfg.TTL,
		Decimals: cfg.BucketDecimals,
		Breaker:  cfg.Breaker,
	},
		signalcache.WithClock[Places](now),
		signalcache.WithLogger[Places](logger),
		signalcache.WithObserver[Places](observer),
	)
	if err != nil {
		return nil, err
	}
	radius := cfg.SearchRadius
	if radius <= 0 {
		radius = DefaultSearchRadius
	}
	return &Resolver{provider: provider, radius: radius, cache: cache}, nil
}

// Resolve classifies the surroundings of sample. A sample altitude overrides
// the provider's elevation.
func (r *Resolver) Resolve(ctx context.Context, sample domain.LocationSample) (domain.LocationContext, error) {
	if r.provider == nil {
		return domain.LocationContext{}, wferrors.NewDegradedError("location", errNoProvider)
	}
	places, err := r.cache.Resolve(ctx, sample.Coordinate, func(ctx context.Context, at domain.Coordinate) (Places, error) {
		return r.provider.NearbyPlaces(ctx, at, r.radius)
	})
	if err != nil {
		return domain.LocationContext{}, err
	}

	elevation := places.Elevation
	if sample.Altitude != nil {
		elevation = *sample.Altitude
	}
	return environment.BuildLocationContext(elevation, places.POIs), nil
}

// Stats returns cache hit and miss counts.
func (r *Resolver) Stats() (hits, misses int64) {
	return r.cache.Stats()
}

// Purge empties the cache.
func (r *Resolver) Purge() {
	r.cache.Purge()
}
