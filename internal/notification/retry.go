package notification

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Policy describes a bounded exponential backoff.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// Delay returns the wait applied after the given failed attempt (1-indexed):
// min(initial * multiplier^(n-1), max).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Runner executes a function with bounded retries. Retryable decides whether
// an error is worth another attempt (nil retries everything); Recover is
// invoked once with the final error when all attempts are exhausted and must
// not re-raise.
type Runner struct {
	Policy    Policy
	Retryable func(error) bool
	Recover   func(err error)
}

// Run calls fn until it succeeds or attempts are exhausted. Attempts for a
// single task are strictly sequential with increasing delay. The returned
// error is the last attempt's error, already handed to Recover.
func (r Runner) Run(ctx context.Context, fn func(attempt int) error) error {
	maxAttempts := r.Policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if r.Retryable != nil && !r.Retryable(lastErr) {
			break
		}
		if attempt < maxAttempts {
			if err := sleep(ctx, r.Policy.Delay(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}

	wrapped := fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
	if r.Recover != nil {
		r.Recover(wrapped)
	}
	return wrapped
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
