package circuitbreaker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }

func succeeding(context.Context) error { return nil }

func testConfig() Config {
	return Config{
		Name:             "inventory",
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 2,
		Timeout:          time.Second,
	}
}

func TestCircuitBreaker_OpensAfterFailureThreshold(t *testing.T) {
	clock := newFakeClock()
	cb := New(testConfig(), WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
		assert.Equal(t, StateClosed, cb.State())
	}

	assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open breaker must not invoke the function")

	stats := cb.Stats()
	assert.Equal(t, int64(3), stats.TotalCalls)
	assert.Equal(t, int64(3), stats.TotalFailures)
	assert.Equal(t, int64(1), stats.TotalRejected)
	require.NotNil(t, stats.OpenedAt)
	assert.Equal(t, clock.Now(), *stats.OpenedAt)
}

func TestCircuitBreaker_SuccessResetsFailureCountWhileClosed(t *testing.T) {
	cb := New(testConfig())
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	_ = cb.Execute(ctx, failing)
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, 0, cb.Stats().FailureCount)

	_ = cb.Execute(ctx, failing)
	_ = cb.Execute(ctx, failing)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	clock := newFakeClock()
	cb := New(testConfig(), WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, failing)
	}
	require.Equal(t, StateOpen, cb.State())

	clock.Advance(30 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, succeeding), ErrCircuitOpen)

	clock.Advance(31 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Stats().FailureCount)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	cb := New(testConfig(), WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, failing)
	}
	clock.Advance(time.Minute)

	require.NoError(t, cb.Execute(ctx, succeeding))
	require.Equal(t, StateHalfOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
	assert.Equal(t, StateOpen, cb.State())
	require.NotNil(t, cb.Stats().OpenedAt)
	assert.Equal(t, clock.Now(), *cb.Stats().OpenedAt)

	assert.ErrorIs(t, cb.Execute(ctx, succeeding), ErrCircuitOpen)
}

func TestCircuitBreaker_TimeoutCountsAsFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	config := testConfig()
	config.Timeout = 20 * time.Millisecond
	config.FailureThreshold = 1
	cb := New(config)

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, StateOpen, cb.State())
	stats := cb.Stats()
	assert.Equal(t, int64(1), stats.TotalTimeouts)
	assert.Equal(t, int64(1), stats.TotalFailures)
}

func TestCircuitBreaker_CallerCancellationIsNotAFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	cb := New(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), cb.Stats().TotalFailures)
}

func TestCircuitBreaker_StateChangeHook(t *testing.T) {
	clock := newFakeClock()
	var transitions []string
	cb := New(testConfig(), WithClock(clock.Now), WithStateChangeHook(func(name string, from, to State) {
		transitions = append(transitions, name+":"+string(from)+"->"+string(to))
	}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, failing)
	}
	clock.Advance(time.Minute)
	_ = cb.Execute(ctx, succeeding)
	_ = cb.Execute(ctx, succeeding)

	assert.Equal(t, []string{
		"inventory:CLOSED->OPEN",
		"inventory:OPEN->HALF_OPEN",
		"inventory:HALF_OPEN->CLOSED",
	}, transitions)
}

func TestCall(t *testing.T) {
	cb := New(testConfig())

	value, err := Call(context.Background(), cb, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, value)

	value, err = Call(context.Background(), cb, func(context.Context) (int, error) {
		return 7, errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, value)
}

func TestCircuitBreaker_ConcurrentUse(t *testing.T) {
	config := testConfig()
	config.FailureThreshold = 1000
	cb := New(config)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = cb.Execute(context.Background(), succeeding)
				return
			}
			_ = cb.Execute(context.Background(), failing)
		}(i)
	}
	wg.Wait()

	stats := cb.Stats()
	assert.Equal(t, int64(50), stats.TotalCalls)
	assert.Equal(t, int64(25), stats.TotalSuccesses)
	assert.Equal(t, int64(25), stats.TotalFailures)
}

func TestNew_AppliesDefaults(t *testing.T) {
	cb := New(Config{Name: "payment"})

	assert.Equal(t, DefaultConfig("payment"), cb.config)
	assert.Equal(t, "payment", cb.Name())
}
