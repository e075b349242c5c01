package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialInterval: time.Millisecond, BackoffCoefficient: 2, MaximumInterval: 4 * time.Millisecond}
}

func TestDelayBackoff(t *testing.T) {
	p := Policy{InitialInterval: time.Second, BackoffCoefficient: 2, MaximumInterval: 5 * time.Second}
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 5*time.Second, p.Delay(4))
	assert.Equal(t, 5*time.Second, p.Delay(10))
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), nil, func(context.Context, int) error {
		calls++
		if calls < 3 {
			return errors.New("503 unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoExhaustsBudget(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), fastPolicy(4), nil, func(context.Context, int) error {
		calls++
		return boom
	})
	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	require.Equal(t, 4, ex.Attempts)
	require.Equal(t, 4, calls)
	require.ErrorIs(t, err, boom)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(error) bool { return false }, func(context.Context, int) error {
		calls++
		return errors.New("insufficient_quota")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{MaxAttempts: 5, InitialInterval: time.Hour}, nil, func(context.Context, int) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestTemporalPolicy(t *testing.T) {
	rp := fastPolicy(2).Temporal()
	require.EqualValues(t, 2, rp.MaximumAttempts)
	require.Equal(t, time.Millisecond, rp.InitialInterval)
}
