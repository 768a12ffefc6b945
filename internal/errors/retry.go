package errors

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"wayfarer/internal/logging"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts  int           // retries after the first call (default 2)
	BaseDelay    time.Duration // first backoff (default 200ms)
	MaxDelay     time.Duration // backoff cap (default 2s)
	JitterFactor float64       // ±fraction of the delay (default 0.25)
}

// DefaultRetryConfig suits interactive provider lookups, where the caller has
// a sub-second budget before it falls back to defaults anyway.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  2,
		BaseDelay:    200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		JitterFactor: 0.25,
	}
}

// RetryWithResult calls fn until it succeeds, returns a non-transient error,
// or runs out of attempts.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, logger logging.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	logger = logging.OrNop(logger)

	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("context cancelled: %w", err)
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("Retry succeeded after %d attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !IsTransient(err) {
			return zero, err
		}
		if attempt == config.MaxAttempts {
			logger.Warn("Max retries (%d) exhausted: %v", config.MaxAttempts+1, err)
			break
		}

		delay := calculateBackoff(attempt, config)
		logger.Debug("Attempt %d failed (%v), waiting %v", attempt+1, err, delay)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}

	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// calculateBackoff returns BaseDelay * 2^attempt, capped and jittered.
func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := time.Duration(float64(config.BaseDelay) * math.Pow(2, float64(attempt)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if config.JitterFactor > 0 {
		jitter := float64(delay) * config.JitterFactor
		delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
		if delay < 0 {
			delay = config.BaseDelay
		}
		if config.MaxDelay > 0 && delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return delay
}
