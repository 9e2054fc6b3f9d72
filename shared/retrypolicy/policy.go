// Package retrypolicy computes retry eligibility and exponential backoff delays.
package retrypolicy

import (
	"math/rand/v2"
	"time"
)

// Policy describes how a failed step is retried
type Policy struct {
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay"`
	Jitter        bool          `mapstructure:"jitter"`

	// random returns a value in [0, 1); nil means math/rand
	random func() float64
}

// DefaultPolicy returns 3 retries starting at 1s, capped at 30s, with jitter
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    3,
		RetryDelay:    time.Second,
		MaxRetryDelay: 30 * time.Second,
		Jitter:        true,
	}
}

// WithRandom returns a copy of the policy using the given source for jitter
func (p Policy) WithRandom(random func() float64) Policy {
	p.random = random
	return p
}

// ShouldRetry reports whether another attempt is allowed after retries
// retries have already been made and the last failure had the given retryability.
func (p Policy) ShouldRetry(retries int, retryable bool) bool {
	return retryable && retries < p.MaxRetries
}

// Delay returns the wait before retry number retryCount (1-based):
// RetryDelay * 2^(retryCount-1), capped at MaxRetryDelay, plus up to 50% jitter.
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}

	delay := p.RetryDelay
	for i := 1; i < retryCount; i++ {
		delay *= 2
		if p.MaxRetryDelay > 0 && delay >= p.MaxRetryDelay {
			break
		}
	}
	if p.MaxRetryDelay > 0 && delay > p.MaxRetryDelay {
		delay = p.MaxRetryDelay
	}

	if p.Jitter && delay > 0 {
		random := p.random
		if random == nil {
			random = rand.Float64
		}
		delay += time.Duration(random() * float64(delay) * 0.5)
	}

	return delay
}
