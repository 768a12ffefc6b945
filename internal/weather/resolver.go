package weather

import (
	"context"
	"time"

	"wayfarer/internal/domain"
	wferrors "wayfarer/internal/errors"
	"wayfarer/internal/logging"
	"wayfarer/internal/signalcache"
)

const (
	// DefaultTTL is the freshness window of a cached reading.
	DefaultTTL = 30 * time.Minute
	// DefaultBucketDecimals rounds coordinates to roughly 1 km cells.
	DefaultBucketDecimals = 2
)

// Config configures a Resolver.
type Config struct {
	TTL            time.Duration
	BucketDecimals int
	MaxEntries     int
	Breaker        wferrors.CircuitBreakerConfig
}

// DefaultConfig returns the standard weather cache settings.
func DefaultConfig() Config {
	return Config{
		TTL:            DefaultTTL,
		BucketDecimals: DefaultBucketDecimals,
		MaxEntries:     512,
		Breaker:        wferrors.DefaultCircuitBreakerConfig(),
	}
}

// Resolver serves weather readings from the cache and falls through to the
// provider on a miss.
type Resolver struct {
	provider Provider
	cache    *signalcache.Cache[domain.WeatherData]
}

// NewResolver builds a resolver. A nil provider makes every lookup fail,
// which callers treat as degraded weather.
func NewResolver(provider Provider, cfg Config, logger logging.Logger, observer signalcache.Observer, now func() time.Time) (*Resolver, error) {
	cache, err := signalcache.New[domain.WeatherData](signalcache.Config{
		Name:     "weather",
		MaxSize:  cfg.MaxEntries,
		TTL:      cfg.TTL,
		Decimals: cfg.BucketDecimals,
		Breaker:  cfg.Breaker,
	},
		signalcache.WithClock[domain.WeatherData](now),
		signalcache.WithLogger[domain.WeatherData](logger),
		signalcache.WithObserver[domain.WeatherData](observer),
		signalcache.WithStamp[domain.WeatherData](func(w domain.WeatherData) time.Time { return w.FetchedAt }),
	)
	if err != nil {
		return nil, err
	}
	return &Resolver{provider: provider, cache: cache}, nil
}

// Resolve returns the reading for at, from cache when fresh.
func (r *Resolver) Resolve(ctx context.Context, at domain.Coordinate) (domain.WeatherData, error) {
	if r.provider == nil {
		return domain.WeatherData{}, wferrors.NewDegradedError("weather", errNoProvider)
	}
	return r.cache.Resolve(ctx, at, r.provider.Fetch)
}

// Stats returns cache hit and miss counts.
func (r *Resolver) Stats() (hits, misses int64) {
	return r.cache.Stats()
}

// Purge empties the cache.
func (r *Resolver) Purge() {
	r.cache.Purge()
}
