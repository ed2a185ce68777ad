// Package retry provides a bounded retry loop with exponential backoff.
//
// The attempt budget is per logical operation: callers pass the number of
// retries allowed after the first attempt, so maxRetries = 0 means exactly
// one attempt. Backoff doubles from one second and caps at five seconds.
// The sleep between attempts is injectable so tests run without real
// delays; the production sleep aborts on context cancellation.
package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	// baseDelay is the wait before the first retry.
	baseDelay = time.Second

	// maxDelay caps the exponential backoff.
	maxDelay = 5 * time.Second
)

// SleepFunc waits for the given duration. Implementations must return
// early with the context's error if it is cancelled.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff returns the wait before retrying after the given 0-based failed
// attempt: 1s, 2s, 4s, then 5s capped.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := baseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	return d
}

// Do runs op up to 1+maxRetries times, sleeping Backoff(i) after failed
// attempt i. It stops early when op succeeds, when retryable returns false
// for the error, or when the context is cancelled. The last operation error
// is returned on exhaustion.
//
// A nil sleep uses the production Sleep; a nil retryable retries every
// error.
func Do(ctx context.Context, maxRetries int, retryable func(error) bool, sleep SleepFunc, op func(ctx context.Context) error) error {
	if sleep == nil {
		sleep = Sleep
	}
	if retryable == nil {
		retryable = func(error) bool { return true }
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if serr := sleep(ctx, Backoff(attempt-1)); serr != nil {
				return fmt.Errorf("retry: wait cancelled: %w", serr)
			}
		}

		err = op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
