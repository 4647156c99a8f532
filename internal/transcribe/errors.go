package transcribe

import (
	"errors"
	"fmt"

	"github.com/nhype/gigaam-inference/internal/audio"
	"github.com/nhype/gigaam-inference/internal/recognize"
)

// Errors surfaced by Pipeline.Run. Callers classify with errors.Is.
var (
	// ErrUnsupportedMedia indicates the input is empty or not an accepted audio type.
	ErrUnsupportedMedia = audio.ErrUnsupportedMedia

	// ErrUnreadableMedia indicates no duration could be determined.
	ErrUnreadableMedia = audio.ErrUnreadableMedia

	// ErrSegmentation indicates the planned segments could not be produced.
	ErrSegmentation = audio.ErrSegmentation

	// ErrModelNotReady indicates the recognizer is still loading or failed to load.
	ErrModelNotReady = recognize.ErrModelNotReady

	// ErrTranscription indicates a recognizer call failed. The whole request
	// fails; partial transcripts are never returned.
	ErrTranscription = errors.New("transcription failed")

	// ErrTimeout indicates the request exceeded the configured processing time.
	ErrTimeout = errors.New("transcription timed out")
)

// SegmentError reports which segment's recognition failed.
// It matches both ErrTranscription and the underlying cause with errors.Is.
type SegmentError struct {
	Index int
	Total int
	Err   error
}

func (e *SegmentError) Error() string {
	if e.Total > 1 {
		return fmt.Sprintf("segment %d of %d: %v", e.Index, e.Total, e.Err)
	}
	return fmt.Sprintf("segment %d: %v", e.Index, e.Err)
}

// Unwrap exposes ErrTranscription and the cause.
func (e *SegmentError) Unwrap() []error {
	return []error{ErrTranscription, e.Err}
}
