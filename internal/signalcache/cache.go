// Package signalcache caches provider readings per rounded-coordinate bucket.
package signalcache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"wayfarer/internal/domain"
	wferrors "wayfarer/internal/errors"
	"wayfarer/internal/logging"
)

const defaultMaxSize = 512

// Observer receives cache and provider outcomes, typically to feed metrics.
type Observer interface {
	CacheLookup(cache string, hit bool)
	ProviderFailure(cache string)
}

// Config configures one bucketed cache.
type Config struct {
	// Name labels logs, metrics and the circuit breaker.
	Name string
	// MaxSize bounds the number of buckets kept.
	MaxSize int
	// TTL is how long a reading stays usable.
	TTL time.Duration
	// Decimals is the coordinate rounding precision of the bucket key.
	Decimals int
	// Breaker guards the provider.
	Breaker wferrors.CircuitBreakerConfig
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is an LRU of bucket key to reading with a freshness window. Misses
// for the same bucket are collapsed into one provider call, and entries are
// written only after the provider succeeds.
type Cache[V any] struct {
	name     string
	ttl      time.Duration
	decimals int

	entries  *lru.Cache[string, entry[V]]
	group    singleflight.Group
	breaker  *wferrors.CircuitBreaker
	stamp    func(V) time.Time
	now      func() time.Time
	logger   logging.Logger
	observer Observer

	hits   atomic.Int64
	misses atomic.Int64
}

// Option customises a cache.
type Option[V any] func(*Cache[V])

// WithClock replaces time.Now.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		if now != nil {
			c.now = now
		}
	}
}

// WithStamp reads the reading's own timestamp for freshness instead of the
// time it was stored. Zero stamps fall back to the store time.
func WithStamp[V any](stamp func(V) time.Time) Option[V] {
	return func(c *Cache[V]) { c.stamp = stamp }
}

// WithLogger sets the logger.
func WithLogger[V any](logger logging.Logger) Option[V] {
	return func(c *Cache[V]) { c.logger = logging.OrNop(logger) }
}

// WithObserver sets the metrics observer.
func WithObserver[V any](observer Observer) Option[V] {
	return func(c *Cache[V]) { c.observer = observer }
}

// New builds a cache. Zero MaxSize falls back to a default.
func New[V any](cfg Config, opts ...Option[V]) (*Cache[V], error) {
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("signalcache %q: ttl must be positive", cfg.Name)
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}
	entries, err := lru.New[string, entry[V]](cfg.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("signalcache %q: %w", cfg.Name, err)
	}
	c := &Cache[V]{
		name:     cfg.Name,
		ttl:      cfg.TTL,
		decimals: cfg.Decimals,
		entries:  entries,
		now:      time.Now,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = wferrors.NewCircuitBreaker(cfg.Name, cfg.Breaker,
		wferrors.WithBreakerLogger(c.logger), wferrors.WithBreakerClock(c.now))
	return c, nil
}

// Key returns the bucket key for a coordinate.
func (c *Cache[V]) Key(at domain.Coordinate) string {
	return at.BucketKey(c.decimals)
}

// Peek returns a fresh cached reading without calling the provider.
func (c *Cache[V]) Peek(at domain.Coordinate) (V, bool) {
	key := c.Key(at)
	if e, ok := c.entries.Get(key); ok {
		if c.now().Sub(e.storedAt) < c.ttl {
			return e.value, true
		}
		c.entries.Remove(key)
	}
	var zero V
	return zero, false
}

// Resolve returns the fresh reading for at's bucket, calling fetch on a miss.
func (c *Cache[V]) Resolve(ctx context.Context, at domain.Coordinate, fetch func(ctx context.Context, at domain.Coordinate) (V, error)) (V, error) {
	if value, ok := c.Peek(at); ok {
		c.hits.Add(1)
		c.observe(true)
		return value, nil
	}
	c.misses.Add(1)
	c.observe(false)

	key := c.Key(at)
	result, err, shared := c.group.Do(key, func() (any, error) {
		value, err := wferrors.ExecuteFunc(c.breaker, ctx, func(ctx context.Context) (V, error) {
			return fetch(ctx, at)
		})
		if err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		storedAt := c.now()
		if c.stamp != nil {
			if ts := c.stamp(value); !ts.IsZero() {
				storedAt = ts
			}
		}
		c.entries.Add(key, entry[V]{value: value, storedAt: storedAt})
		return value, nil
	})
	if err != nil {
		var zero V
		if c.observer != nil {
			c.observer.ProviderFailure(c.name)
		}
		c.logger.Warn("%s lookup for %s failed: %v", c.name, key, err)
		return zero, err
	}
	if shared {
		c.logger.Debug("%s lookup for %s shared with a concurrent caller", c.name, key)
	}
	return result.(V), nil
}

func (c *Cache[V]) observe(hit bool) {
	if c.observer != nil {
		c.observer.CacheLookup(c.name, hit)
	}
}

// Stats returns lifetime hit and miss counts.
func (c *Cache[V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of buckets held, fresh or not.
func (c *Cache[V]) Len() int {
	return c.entries.Len()
}

// Purge drops every entry and closes the breaker.
func (c *Cache[V]) Purge() {
	c.entries.Purge()
	c.breaker.Reset()
	c.hits.Store(0)
	c.misses.Store(0)
}
