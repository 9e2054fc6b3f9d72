// Package circuitbreaker guards calls to a single remote dependency.
//
// A breaker starts CLOSED. After FailureThreshold failures it OPENs and rejects
// calls without invoking them until RecoveryTimeout has elapsed, then moves to
// HALF_OPEN and lets calls through as probes. SuccessThreshold consecutive probe
// successes close it again; a single probe failure reopens it.
package circuitbreaker

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var (
	// ErrCircuitOpen is returned without calling the guarded function while the breaker is open
	ErrCircuitOpen = errors.New("circuit open")
	// ErrTimeout is returned when the guarded function does not finish within Config.Timeout
	ErrTimeout = errors.New("circuit breaker call timeout")
)

// State represents the breaker state
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// Config holds breaker thresholds
type Config struct {
	Name             string        `mapstructure:"name"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the thresholds used when none are configured
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// Stats is a point-in-time snapshot of a breaker
type Stats struct {
	Name           string     `json:"name"`
	State          State      `json:"state"`
	FailureCount   int        `json:"failure_count"`
	SuccessCount   int        `json:"success_count"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	LastFailureAt  *time.Time `json:"last_failure_at,omitempty"`
	TotalCalls     int64      `json:"total_calls"`
	TotalFailures  int64      `json:"total_failures"`
	TotalSuccesses int64      `json:"total_successes"`
	TotalTimeouts  int64      `json:"total_timeouts"`
	TotalRejected  int64      `json:"total_rejected"`
}

// StateChangeFunc is notified after every state transition
type StateChangeFunc func(name string, from, to State)

// Option configures a CircuitBreaker
type Option func(*CircuitBreaker)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

// WithStateChangeHook registers a callback for state transitions.
// The callback runs while the breaker lock is held and must not call back into the breaker.
func WithStateChangeHook(fn StateChangeFunc) Option {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = fn
	}
}

// CircuitBreaker is safe for concurrent use
type CircuitBreaker struct {
	config        Config
	now           func() time.Time
	onStateChange StateChangeFunc

	mu                sync.Mutex
	state             State
	failureCount      int
	halfOpenSuccesses int
	openedAt          time.Time
	lastFailureAt     time.Time

	totalCalls     atomic.Int64
	totalFailures  atomic.Int64
	totalSuccesses atomic.Int64
	totalTimeouts  atomic.Int64
	totalRejected  atomic.Int64
}

// New creates a closed breaker. Zero-valued thresholds fall back to DefaultConfig.
func New(config Config, opts ...Option) *CircuitBreaker {
	defaults := DefaultConfig(config.Name)
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = defaults.RecoveryTimeout
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = defaults.SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	cb := &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Name returns the guarded dependency name
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// State returns the current state without triggering the OPEN -> HALF_OPEN probe transition
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn through the breaker. fn receives a context that is cancelled
// when the breaker timeout fires; its result is discarded if it loses the race.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, cb.config.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(callCtx)
	}()

	select {
	case err := <-done:
		return cb.afterCall(ctx, callCtx, err)
	case <-callCtx.Done():
		return cb.afterCall(ctx, callCtx, callCtx.Err())
	}
}

func (cb *CircuitBreaker) afterCall(ctx, callCtx context.Context, err error) error {
	switch {
	case err == nil:
		cb.onSuccess()
		return nil
	case ctx.Err() != nil:
		// the caller gave up; this says nothing about the dependency
		return ctx.Err()
	case callCtx.Err() != nil:
		cb.totalTimeouts.Inc()
		cb.onFailure()
		return errors.Wrapf(ErrTimeout, "%s did not respond within %s", cb.config.Name, cb.config.Timeout)
	default:
		cb.onFailure()
		return err
	}
}

// Call is Execute for functions that return a value
func Call[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := cb.Execute(ctx, func(ctx context.Context) error {
		value, err := fn(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Stats returns a snapshot of the breaker state and lifetime counters
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	stats := Stats{
		Name:         cb.config.Name,
		State:        cb.state,
		FailureCount: cb.failureCount,
		SuccessCount: cb.halfOpenSuccesses,
	}
	if !cb.openedAt.IsZero() {
		openedAt := cb.openedAt
		stats.OpenedAt = &openedAt
	}
	if !cb.lastFailureAt.IsZero() {
		lastFailureAt := cb.lastFailureAt
		stats.LastFailureAt = &lastFailureAt
	}
	cb.mu.Unlock()

	stats.TotalCalls = cb.totalCalls.Load()
	stats.TotalFailures = cb.totalFailures.Load()
	stats.TotalSuccesses = cb.totalSuccesses.Load()
	stats.TotalTimeouts = cb.totalTimeouts.Load()
	stats.TotalRejected = cb.totalRejected.Load()
	return stats
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.config.RecoveryTimeout {
			cb.totalRejected.Inc()
			return errors.Wrap(ErrCircuitOpen, cb.config.Name)
		}
		cb.halfOpenSuccesses = 0
		cb.setState(StateHalfOpen)
	}

	cb.totalCalls.Inc()
	return nil
}

func (cb *CircuitBreaker) onSuccess() {
	cb.totalSuccesses.Inc()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.config.SuccessThreshold {
			cb.failureCount = 0
			cb.halfOpenSuccesses = 0
			cb.setState(StateClosed)
		}
	case StateClosed:
		cb.failureCount = 0
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.totalFailures.Inc()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureAt = cb.now()

	switch cb.state {
	case StateHalfOpen:
		cb.open()
	case StateClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.open()
		}
	}
}

// open must be called with mu held
func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.now()
	cb.halfOpenSuccesses = 0
	cb.setState(StateOpen)
}

// setState must be called with mu held
func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.onStateChange != nil {
		cb.onStateChange(cb.config.Name, from, to)
	}
}
