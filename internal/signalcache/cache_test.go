package signalcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/domain"
	wferrors "wayfarer/internal/errors"
)

type recordingObserver struct {
	mu       sync.Mutex
	hits     int
	misses   int
	failures int
}

func (o *recordingObserver) CacheLookup(_ string, hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func (o *recordingObserver) ProviderFailure(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures++
}

func newTestCache(t *testing.T, now *time.Time, obs Observer) *Cache[int] {
	t.Helper()
	c, err := New[int](Config{Name: "test", TTL: 30 * time.Minute, Decimals: 2},
		WithClock[int](func() time.Time { return *now }),
		WithObserver[int](obs))
	require.NoError(t, err)
	return c
}

func TestResolveCachesPerBucket(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	obs := &recordingObserver{}
	c := newTestCache(t, &now, obs)

	calls := 0
	fetch := func(context.Context, domain.Coordinate) (int, error) { calls++; return calls, nil }

	v, err := c.Resolve(context.Background(), domain.Coordinate{Latitude: 51.5071, Longitude: -0.1277}, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// Same 2-decimal bucket.
	v, err = c.Resolve(context.Background(), domain.Coordinate{Latitude: 51.5074, Longitude: -0.1281}, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1, obs.hits)
}

func TestResolveExpiresAfterTTL(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	c := newTestCache(t, &now, nil)

	calls := 0
	fetch := func(context.Context, domain.Coordinate) (int, error) { calls++; return calls, nil }
	at := domain.Coordinate{Latitude: 48.85, Longitude: 2.35}

	_, _ = c.Resolve(context.Background(), at, fetch)
	now = now.Add(29 * time.Minute)
	v, _ := c.Resolve(context.Background(), at, fetch)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	v, _ = c.Resolve(context.Background(), at, fetch)
	assert.Equal(t, 2, v)
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	obs := &recordingObserver{}
	c := newTestCache(t, &now, obs)
	at := domain.Coordinate{Latitude: 1, Longitude: 1}

	_, err := c.Resolve(context.Background(), at, func(context.Context, domain.Coordinate) (int, error) {
		return 0, errors.New("provider down")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1, obs.failures)

	v, err := c.Resolve(context.Background(), at, func(context.Context, domain.Coordinate) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestResolveOpensBreaker(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	c, err := New[int](Config{Name: "weather", TTL: time.Minute, Breaker: wferrors.CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Hour}},
		WithClock[int](func() time.Time { return now }))
	require.NoError(t, err)

	calls := 0
	fail := func(context.Context, domain.Coordinate) (int, error) { calls++; return 0, errors.New("down") }
	for i := 0; i < 4; i++ {
		_, _ = c.Resolve(context.Background(), domain.Coordinate{Latitude: float64(i)}, fail)
	}
	assert.Equal(t, 2, calls)

	_, err = c.Resolve(context.Background(), domain.Coordinate{Latitude: 9}, fail)
	assert.ErrorIs(t, err, wferrors.ErrCircuitOpen)
}

func TestResolveCollapsesConcurrentMisses(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	c := newTestCache(t, &now, nil)

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context, domain.Coordinate) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Resolve(context.Background(), domain.Coordinate{Latitude: 10, Longitude: 10}, fetch)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(5))
	for _, r := range results {
		assert.Equal(t, 42, r)
	}
}

func TestWithStampUsesReadingTime(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	type reading struct{ at time.Time }
	c, err := New[reading](Config{Name: "stamped", TTL: 10 * time.Minute},
		WithClock[reading](func() time.Time { return now }),
		WithStamp[reading](func(r reading) time.Time { return r.at }))
	require.NoError(t, err)

	stale := reading{at: now.Add(-15 * time.Minute)}
	_, err = c.Resolve(context.Background(), domain.Coordinate{}, func(context.Context, domain.Coordinate) (reading, error) { return stale, nil })
	require.NoError(t, err)

	_, ok := c.Peek(domain.Coordinate{})
	assert.False(t, ok)
}

func TestNewRejectsZeroTTL(t *testing.T) {
	_, err := New[int](Config{Name: "bad"})
	assert.Error(t, err)
}
