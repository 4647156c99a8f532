package recognize

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// limited bounds the number of in-flight calls across all requests.
type limited struct {
	next Recognizer
	sem  *semaphore.Weighted
}

// Limit wraps r so that at most n calls run at once process-wide. Waiting
// for a slot honors ctx, so a canceled request never reaches the backend.
// n < 1 returns r unchanged.
func Limit(r Recognizer, n int) Recognizer {
	if n < 1 {
		return r
	}
	return &limited{next: r, sem: semaphore.NewWeighted(int64(n))}
}

// Serialize wraps r so that calls never overlap, for backends that hold a
// single model instance.
func Serialize(r Recognizer) Recognizer {
	return Limit(r, 1)
}

func (l *limited) Recognize(ctx context.Context, audioPath string) (string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer l.sem.Release(1)
	return l.next.Recognize(ctx, audioPath)
}
