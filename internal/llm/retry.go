package llm

import (
	"context"
	"fmt"
	"time"
)

// BackoffFunc returns the wait before the retry that follows attempt
// (1-based).
type BackoffFunc func(base time.Duration, attempt int) time.Duration

// LinearBackoff waits base × attempt.
func LinearBackoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// RetryPolicy bounds how often a failing call is repeated.
type RetryPolicy struct {
	MaxRetries int // retries after the first attempt
	BaseDelay  time.Duration
	Backoff    BackoffFunc // nil means LinearBackoff
}

// DefaultRetryPolicy makes three attempts in total, waiting 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: time.Second, Backoff: LinearBackoff}
}

// Do calls fn until it succeeds or MaxRetries+1 attempts have failed. The
// wait between attempts returns early if ctx is done. The terminal error
// wraps ErrRetriesExhausted and the last failure.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	backoff := p.Backoff
	if backoff == nil {
		backoff = LinearBackoff
	}
	attempts := max(p.MaxRetries, 0) + 1

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx, attempt); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(backoff(p.BaseDelay, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("llm: retry aborted after attempt %d: %w", attempt, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
}
