// Package recognize adapts speech-recognition backends to a single-segment
// contract: one bounded audio file in, its text out.
package recognize

import "context"

// Recognizer transcribes one audio segment. Implementations must be safe for
// concurrent use, or be wrapped with Serialize.
type Recognizer interface {
	// Recognize returns the text spoken in the file at audioPath.
	// An empty string is a valid result for silence.
	Recognize(ctx context.Context, audioPath string) (string, error)
}

// Func adapts a plain function to the Recognizer interface.
type Func func(ctx context.Context, audioPath string) (string, error)

// Recognize calls f.
func (f Func) Recognize(ctx context.Context, audioPath string) (string, error) {
	return f(ctx, audioPath)
}

// Compile-time interface verification.
var _ Recognizer = Func(nil)
