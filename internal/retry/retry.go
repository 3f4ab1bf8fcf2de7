// Package retry runs an operation a bounded number of times, waiting between
// attempts for as long as a classifier decides from the failure.
package retry

import (
	"context"
	"fmt"
	"time"
)

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Classifier decides whether err is worth another attempt and how long to
// wait before it.
type Classifier func(err error) (wait time.Duration, retryable bool)

// Policy configures Do.
type Policy struct {
	MaxAttempts int
	Classify    Classifier
	Sleep       SleepFunc

	// OnRetry, if set, is called before each wait. attempt is the 1-based
	// number of the attempt that just failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error // last failure
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls fn until it succeeds, fails with a non-retryable error, or
// MaxAttempts is used up. There is no wait after the final attempt.
// Cancellation of ctx is never retried.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	_, err := Value(ctx, p, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, err
		}

		wait, retryable := time.Duration(0), true
		if p.Classify != nil {
			wait, retryable = p.Classify(err)
		}
		if !retryable {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Attempts: maxAttempts, Err: lastErr}
}
