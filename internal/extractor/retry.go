package extractor

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/wbl-labs/leadharvest/internal/metrics"
)

// RetryPolicy wraps collaborator calls that can fail transiently in a
// bounded, backed-off retry loop. The loop is an explicit state machine
// (attempt count, last error, next backoff) driven through an injected
// Sleeper so tests run without real delays.
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleeper     Sleeper
}

// NewRetryPolicy builds a policy. Non-positive arguments fall back to the
// defaults: 3 attempts, 250ms base, 5s cap.
func NewRetryPolicy(maxAttempts int, baseDelay, maxDelay time.Duration, sleeper Sleeper) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	if sleeper == nil {
		sleeper = ContextSleeper{}
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		sleeper:     sleeper,
	}
}

// Do invokes op, retrying transient failures up to the attempt bound with
// increasing backoff. Non-transient failures propagate immediately. Every
// retry is reported to acc under reason. Cancellation aborts the loop at
// the next attempt boundary regardless of remaining attempts.
func (p *RetryPolicy) Do(ctx context.Context, reason string, acc *Accumulator, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == p.maxAttempts-1 {
			break
		}
		acc.Retry(reason)
		metrics.ObserveRetry(reason)
		if err := p.sleeper.Sleep(ctx, p.backoff(attempt)); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}
	}
	return fmt.Errorf("retries exhausted after %d attempts: %w", p.maxAttempts, lastErr)
}

// backoff returns the jittered wait before the attempt after `attempt`.
func (p *RetryPolicy) backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// ContextSleeper sleeps on the wall clock, waking early on cancellation.
type ContextSleeper struct{}

// Sleep blocks for d or until ctx finishes, whichever comes first.
func (ContextSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
