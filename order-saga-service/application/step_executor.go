package application

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/retrypolicy"
	"github.com/draftea/order-fulfillment/shared/telemetry"
	"go.uber.org/zap"
)

// StepFunc performs one attempt of a saga step. A returned error is treated
// as a retryable failure.
type StepFunc func(ctx context.Context) (*domain.StepOutcome, error)

// StepResult is the final outcome of a step after retries
type StepResult struct {
	Outcome *domain.StepOutcome
	Retries int
	Elapsed time.Duration
}

// StepExecutor runs saga steps with retries and the saga deadline
type StepExecutor struct {
	policy retrypolicy.Policy
	logger *zap.Logger
}

// NewStepExecutor creates a new StepExecutor
func NewStepExecutor(policy retrypolicy.Policy, logger *zap.Logger) *StepExecutor {
	return &StepExecutor{
		policy: policy,
		logger: logger,
	}
}

type attemptResult struct {
	outcome *domain.StepOutcome
	err     error
}

// Run executes fn until it succeeds, fails with a non-retryable error, runs
// out of retries or ctx expires. ctx carries the saga deadline.
func (e *StepExecutor) Run(ctx context.Context, step domain.Step, fn StepFunc) StepResult {
	started := time.Now()
	attempts := 0
	var last *domain.StepOutcome

	_ = retry.Do(
		func() error {
			attempts++
			last = e.attempt(ctx, step, fn)
			if last.Success {
				return nil
			}
			return last.Error
		},
		retry.Context(ctx),
		retry.Attempts(uint(e.policy.MaxRetries+1)),
		retry.RetryIf(func(error) bool {
			return e.policy.ShouldRetry(attempts-1, last.Error.Retryable)
		}),
		// n is the number of attempts made so far, which is the 1-based retry number
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return e.policy.Delay(int(n))
		}),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			e.logger.Warn("saga step failed, retrying",
				zap.String("step", string(step)),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
			telemetry.RecordStepRetry(ctx, string(step))
		}),
	)

	if last == nil || (!last.Success && ctx.Err() != nil) {
		last = timedOut(step)
	}

	retries := attempts - 1
	if retries < 0 {
		retries = 0
	}

	elapsed := time.Since(started)
	last.Elapsed = elapsed
	return StepResult{
		Outcome: last,
		Retries: retries,
		Elapsed: elapsed,
	}
}

func (e *StepExecutor) attempt(ctx context.Context, step domain.Step, fn StepFunc) *domain.StepOutcome {
	done := make(chan attemptResult, 1)
	go func() {
		outcome, err := fn(ctx)
		done <- attemptResult{outcome: outcome, err: err}
	}()

	select {
	case res := <-done:
		if ctx.Err() != nil && (res.err != nil || res.outcome == nil || !res.outcome.Success) {
			return timedOut(step)
		}
		if res.err != nil {
			return domain.Failed(step, domain.CodeStepError, res.err.Error(), true, nil)
		}
		if res.outcome == nil {
			return domain.Failed(step, domain.CodeStepError, "step returned no outcome", true, nil)
		}
		res.outcome.Step = step
		return res.outcome
	case <-ctx.Done():
		// the in-flight call keeps running; its result is dropped
		return timedOut(step)
	}
}

func timedOut(step domain.Step) *domain.StepOutcome {
	return domain.Failed(step, domain.CodeStepTimeout, "saga timeout exceeded", false, nil)
}
