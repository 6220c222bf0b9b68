// Package retry implements a generic retry combinator for fallible,
// classifiable operations, keeping backoff control flow out of the
// business logic that uses it.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy controls how many attempts are made and how long to back off
// between them. Backoff doubles per attempt from BaseDelay up to MaxDelay,
// with random jitter of up to half the computed delay added on top.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy matches the leases-service contract: 3 attempts,
// exponential backoff from 1s capped at 10s.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	MaxDelay:    10 * time.Second,
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// policy's attempts are exhausted, in which case the last error is returned.
// retryable classifies errors; a nil classifier retries everything.
func Do(ctx context.Context, p Policy, retryable func(error) bool, op func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p = DefaultPolicy
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, p.delay(attempt)); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	return d + time.Duration(rand.Int63n(int64(d/2)+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
