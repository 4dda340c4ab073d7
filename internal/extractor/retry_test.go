package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	policy := NewRetryPolicy(3, time.Millisecond, time.Second, sleeper)
	acc := NewAccumulator(newFakeClock())

	calls := 0
	err := policy.Do(context.Background(), ReasonFetch, acc, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Zero(t, sleeper.count())
	require.Zero(t, acc.Snapshot().Retried[ReasonFetch])
}

func TestRetryTransientThenSuccess(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	policy := NewRetryPolicy(3, time.Millisecond, time.Second, sleeper)
	acc := NewAccumulator(newFakeClock())

	calls := 0
	err := policy.Do(context.Background(), ReasonFetch, acc, func(context.Context) error {
		calls++
		if calls < 3 {
			return TransientFetch(errors.New("rate limited"))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, 2, sleeper.count())
	require.Equal(t, int64(2), acc.Snapshot().Retried[ReasonFetch])
}

func TestRetryNonTransientPropagatesImmediately(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	policy := NewRetryPolicy(3, time.Millisecond, time.Second, sleeper)
	acc := NewAccumulator(newFakeClock())

	fatal := FatalFetch(errors.New("navigation failed"))
	calls := 0
	err := policy.Do(context.Background(), ReasonFetch, acc, func(context.Context) error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, calls)
	require.Zero(t, sleeper.count())
	require.Zero(t, acc.Snapshot().Retried[ReasonFetch])
}

func TestRetryExhaustion(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	policy := NewRetryPolicy(3, time.Millisecond, time.Second, sleeper)
	acc := NewAccumulator(newFakeClock())

	transient := TransientWrite(errors.New("connection reset"))
	calls := 0
	err := policy.Do(context.Background(), ReasonStorage, acc, func(context.Context) error {
		calls++
		return transient
	})
	require.Error(t, err)
	require.ErrorIs(t, err, transient)
	require.Contains(t, err.Error(), "retries exhausted after 3 attempts")
	require.Equal(t, 3, calls)
	require.Equal(t, 2, sleeper.count())
	require.Equal(t, int64(2), acc.Snapshot().Retried[ReasonStorage])
}

func TestRetryCancellationNotRetried(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	policy := NewRetryPolicy(5, time.Millisecond, time.Second, sleeper)
	acc := NewAccumulator(newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := policy.Do(ctx, ReasonFetch, acc, func(context.Context) error {
		calls++
		cancel()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
	require.Zero(t, acc.Snapshot().Retried[ReasonFetch])
}

func TestRetryCanceledBeforeFirstAttempt(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(3, time.Millisecond, time.Second, &recordingSleeper{})
	acc := NewAccumulator(newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := policy.Do(ctx, ReasonFetch, acc, func(context.Context) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(10, 100*time.Millisecond, 400*time.Millisecond, &recordingSleeper{})

	for attempt := 0; attempt < 8; attempt++ {
		d := policy.backoff(attempt)
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.LessOrEqual(t, d, 400*time.Millisecond)
	}
	// First backoff is at least half the base delay.
	require.GreaterOrEqual(t, policy.backoff(0), 50*time.Millisecond)
}

func TestContextSleeperWakesOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := ContextSleeper{}.Sleep(ctx, 10*time.Second)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 5*time.Second)
}
