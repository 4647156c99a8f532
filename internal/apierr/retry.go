package apierr

import (
	"context"
	"fmt"
	"time"
)

// Backoff describes how a recognizer call is retried.
//
// The zero value makes a single attempt. Delays double after each failure,
// starting at Base and never exceeding Max.
type Backoff struct {
	Retries int
	Base    time.Duration
	Max     time.Duration

	// Retryable reports whether an error is worth another attempt.
	// Defaults to IsRetryable.
	Retryable func(error) bool

	// OnRetry is called before each retry with the 1-based retry number and
	// the error that caused it.
	OnRetry func(retry int, err error)
}

// delay returns the pause before the given 1-based retry.
func (b Backoff) delay(retry int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = time.Millisecond
	}
	limit := b.Max
	if limit < base {
		limit = base
	}
	d := base
	for i := 1; i < retry && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}

func (b Backoff) retryable(err error) bool {
	if b.Retryable != nil {
		return b.Retryable(err)
	}
	return IsRetryable(err)
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// retry budget runs out. A canceled context stops it before the next attempt.
func Retry[T any](ctx context.Context, b Backoff, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	retries := max(b.Retries, 0)

	var err error
	for retry := 0; retry <= retries; retry++ {
		if retry > 0 {
			if b.OnRetry != nil {
				b.OnRetry(retry, err)
			}
			if werr := wait(ctx, b.delay(retry)); werr != nil {
				return zero, werr
			}
		}
		if cerr := ctx.Err(); cerr != nil {
			return zero, cerr
		}

		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if !b.retryable(err) {
			return zero, err
		}
	}

	if retries == 0 {
		return zero, err
	}
	return zero, fmt.Errorf("gave up after %d retries: %w", retries, err)
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
