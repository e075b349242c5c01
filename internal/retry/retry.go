// Package retry runs an operation under a bounded attempt budget with
// exponential backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
)

// Policy mirrors the shape of a Temporal retry policy so the same values can
// drive in-process retries and activity retries.
type Policy struct {
	MaxAttempts        int           `yaml:"max_attempts" json:"max_attempts"`
	InitialInterval    time.Duration `yaml:"initial_interval" json:"initial_interval"`
	BackoffCoefficient float64       `yaml:"backoff_coefficient" json:"backoff_coefficient"`
	MaximumInterval    time.Duration `yaml:"maximum_interval" json:"maximum_interval"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:        3,
		InitialInterval:    time.Second,
		BackoffCoefficient: 2,
		MaximumInterval:    20 * time.Second,
	}
}

// Delay returns the wait before attempt n+1, where n counts completed attempts (n >= 1).
func (p Policy) Delay(n int) time.Duration {
	d := p.InitialInterval
	coef := p.BackoffCoefficient
	if coef < 1 {
		coef = 1
	}
	for i := 1; i < n; i++ {
		d = time.Duration(float64(d) * coef)
		if p.MaximumInterval > 0 && d >= p.MaximumInterval {
			return p.MaximumInterval
		}
	}
	if p.MaximumInterval > 0 && d > p.MaximumInterval {
		return p.MaximumInterval
	}
	return d
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Temporal converts the policy for activity options.
func (p Policy) Temporal() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    p.InitialInterval,
		BackoffCoefficient: p.BackoffCoefficient,
		MaximumInterval:    p.MaximumInterval,
		MaximumAttempts:    int32(p.attempts()),
	}
}

// ExhaustedError reports the last failure once the budget is spent or a
// non-retryable error stops the loop early.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls fn until it succeeds, retryable reports false, the budget is spent
// or ctx is done. A nil retryable retries every error.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context, attempt int) error) error {
	budget := p.attempts()
	var err error
	for attempt := 1; attempt <= budget; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			if err == nil {
				err = cerr
			}
			return &ExhaustedError{Attempts: attempt - 1, Err: err}
		}
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return &ExhaustedError{Attempts: attempt, Err: err}
		}
		if retryable != nil && !retryable(err) {
			return &ExhaustedError{Attempts: attempt, Err: err}
		}
		if attempt == budget {
			break
		}
		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return &ExhaustedError{Attempts: attempt, Err: err}
		case <-timer.C:
		}
	}
	return &ExhaustedError{Attempts: budget, Err: err}
}
