package apierr_test

// Notes:
// - Exact backoff timing is not tested, only attempt counts and error shapes.
// - Delays are kept at 1ms so the suite stays fast.

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nhype/gigaam-inference/internal/apierr"
)

func TestRetry(t *testing.T) {
	t.Parallel()

	errTransient := errors.New("transient")
	always := func(error) bool { return true }
	never := func(error) bool { return false }

	tests := []struct {
		name       string
		backoff    apierr.Backoff
		failures   int // calls that fail before success; -1 = always fail
		wantCalls  int
		wantErr    bool
		wantGaveUp bool
	}{
		{
			name:      "success on first try",
			backoff:   apierr.Backoff{Retries: 3, Base: time.Millisecond, Retryable: always},
			wantCalls: 1,
		},
		{
			name:      "retries then succeeds",
			backoff:   apierr.Backoff{Retries: 3, Base: time.Millisecond, Retryable: always},
			failures:  2,
			wantCalls: 3,
		},
		{
			name:      "non-retryable stops immediately",
			backoff:   apierr.Backoff{Retries: 3, Base: time.Millisecond, Retryable: never},
			failures:  -1,
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:       "exhausted budget wraps last error",
			backoff:    apierr.Backoff{Retries: 3, Base: time.Millisecond, Retryable: always},
			failures:   -1,
			wantCalls:  4,
			wantErr:    true,
			wantGaveUp: true,
		},
		{
			name:      "zero value is a single unwrapped attempt",
			backoff:   apierr.Backoff{Retryable: always},
			failures:  -1,
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "negative retries treated as zero",
			backoff:   apierr.Backoff{Retries: -5, Retryable: always},
			failures:  -1,
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "unset delays still retry",
			backoff:   apierr.Backoff{Retries: 1, Retryable: always},
			failures:  1,
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			got, err := apierr.Retry(context.Background(), tt.backoff,
				func(context.Context) (string, error) {
					calls++
					if tt.failures < 0 || calls <= tt.failures {
						return "", errTransient
					}
					return "ok", nil
				})

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !tt.wantErr {
				if err != nil || got != "ok" {
					t.Errorf("Retry() = (%q, %v), want (\"ok\", nil)", got, err)
				}
				return
			}
			if !errors.Is(err, errTransient) {
				t.Fatalf("error = %v, want wrapping %v", err, errTransient)
			}
			if gaveUp := strings.Contains(err.Error(), "gave up after"); gaveUp != tt.wantGaveUp {
				t.Errorf("error %q gave-up wrapper = %v, want %v", err, gaveUp, tt.wantGaveUp)
			}
		})
	}
}

func TestRetryDefaultClassifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{name: "rate limit is retried", err: apierr.ErrRateLimit, wantCalls: 3},
		{name: "auth failure is not", err: apierr.ErrAuthFailed, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			_, err := apierr.Retry(context.Background(), apierr.Backoff{Retries: 2, Base: time.Millisecond},
				func(context.Context) (int, error) { calls++; return 0, tt.err })

			if !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryOnRetry(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var retries []int
	b := apierr.Backoff{
		Retries: 2,
		Base:    time.Millisecond,
		OnRetry: func(retry int, _ error) {
			mu.Lock()
			defer mu.Unlock()
			retries = append(retries, retry)
		},
	}

	_, _ = apierr.Retry(context.Background(), b,
		func(context.Context) (int, error) { return 0, apierr.ErrRateLimit })

	mu.Lock()
	defer mu.Unlock()
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("OnRetry retries = %v, want [1 2]", retries)
	}
}

func TestRetryCancellation(t *testing.T) {
	t.Parallel()

	t.Run("canceled context makes no attempt", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		_, err := apierr.Retry(ctx, apierr.Backoff{Retries: 5, Base: time.Second},
			func(context.Context) (string, error) { calls++; return "", apierr.ErrRateLimit })

		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if calls != 0 {
			t.Errorf("calls = %d, want 0", calls)
		}
	})

	t.Run("cancellation during backoff stops early", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		calls := 0
		_, err := apierr.Retry(ctx,
			apierr.Backoff{Retries: 10, Base: 50 * time.Millisecond, Max: 100 * time.Millisecond},
			func(context.Context) (string, error) {
				calls++
				if calls == 1 {
					time.AfterFunc(5*time.Millisecond, cancel)
				}
				return "", apierr.ErrRateLimit
			})

		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if calls >= 5 {
			t.Errorf("calls = %d, want fewer than 5", calls)
		}
	})

	t.Run("fn receives the caller context", func(t *testing.T) {
		t.Parallel()

		type key struct{}
		ctx := context.WithValue(context.Background(), key{}, "job-1")

		got, err := apierr.Retry(ctx, apierr.Backoff{},
			func(ctx context.Context) (string, error) {
				v, _ := ctx.Value(key{}).(string)
				return v, nil
			})
		if err != nil || got != "job-1" {
			t.Errorf("Retry() = (%q, %v), want (\"job-1\", nil)", got, err)
		}
	})
}
