package recognize

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// MockRecognizer returns a deterministic placeholder for each segment.
// It lets the service run end to end without a model installed.
type MockRecognizer struct {
	// Delay simulates inference time; the call honors cancellation while waiting.
	Delay time.Duration
}

// Compile-time interface verification.
var _ Recognizer = (*MockRecognizer)(nil)

// Recognize returns "[transcript of <file name>]".
func (m *MockRecognizer) Recognize(ctx context.Context, audioPath string) (string, error) {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Sprintf("[transcript of %s]", filepath.Base(audioPath)), nil
}
