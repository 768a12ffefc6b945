package errors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wayfarer/internal/logging"
)

// ErrCircuitOpen is wrapped by the error a breaker returns while open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// StateClosed - normal operation, requests allowed
	StateClosed CircuitState = iota
	// StateOpen - failing, requests rejected without calling the provider
	StateOpen
	// StateHalfOpen - probing whether the provider recovered
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures circuit breaker behavior
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening (default 5)
	SuccessThreshold int           // half-open successes before closing (default 2)
	Timeout          time.Duration // open period before a probe is allowed (default 30s)
}

// DefaultCircuitBreakerConfig returns sensible defaults
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	def := DefaultCircuitBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = def.SuccessThreshold
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}

// CircuitBreaker guards a signal provider. While open it fails fast so the
// analyzer can fall back to defaults without waiting on a dead upstream.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	logger logging.Logger
	now    func() time.Time

	mu              sync.Mutex
	state           CircuitState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

// CircuitBreakerOption customises a breaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithBreakerLogger sets the breaker's logger.
func WithBreakerLogger(logger logging.Logger) CircuitBreakerOption {
	return func(cb *CircuitBreaker) { cb.logger = logging.OrNop(logger) }
}

// WithBreakerClock replaces time.Now, mainly for tests.
func WithBreakerClock(now func() time.Time) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		if now != nil {
			cb.now = now
		}
	}
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig, opts ...CircuitBreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:   name,
		config: config.withDefaults(),
		logger: logging.NewComponentLogger("circuit-breaker"),
		now:    time.Now,
		state:  StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Execute runs fn with circuit breaker protection
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.afterRequest(err)
	return err
}

// ExecuteFunc is Execute for functions returning a value.
func ExecuteFunc[T any](cb *CircuitBreaker, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := cb.beforeRequest(); err != nil {
		return zero, err
	}
	result, err := fn(ctx)
	cb.afterRequest(err)
	return result, err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}
	elapsed := cb.now().Sub(cb.lastFailureTime)
	if elapsed >= cb.config.Timeout {
		cb.state = StateHalfOpen
		cb.successCount = 0
		cb.logger.Info("[%s] circuit half-open, probing provider", cb.name)
		return nil
	}
	return &DegradedError{
		Err:    fmt.Errorf("%w for %s", ErrCircuitOpen, cb.name),
		Signal: cb.name,
		Message: fmt.Sprintf("%s provider unavailable, retrying in %v",
			cb.name, (cb.config.Timeout - elapsed).Round(time.Second)),
	}
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		switch cb.state {
		case StateClosed:
			cb.failureCount = 0
		case StateHalfOpen:
			cb.successCount++
			if cb.successCount >= cb.config.SuccessThreshold {
				cb.state = StateClosed
				cb.failureCount = 0
				cb.successCount = 0
				cb.logger.Info("[%s] circuit closed, provider recovered", cb.name)
			}
		}
		return
	}

	cb.lastFailureTime = cb.now()
	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.logger.Warn("[%s] circuit opened after %d failures: %v", cb.name, cb.failureCount, err)
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.successCount = 0
		cb.logger.Warn("[%s] circuit reopened, probe failed: %v", cb.name, err)
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset returns the breaker to closed with cleared counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
}
