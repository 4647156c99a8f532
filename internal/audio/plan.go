package audio

import (
	"fmt"
	"time"

	"github.com/nhype/gigaam-inference/internal/format"
)

// DefaultMaxSegment is the longest audio the recognizer accepts in one call.
const DefaultMaxSegment = 29 * time.Second

// Span is one planned time range of the source audio.
// Spans are half-open: a sample exactly at End belongs to the next span.
type Span struct {
	Index int
	Start time.Duration
	End   time.Duration
}

// Duration returns the length of this span.
func (s Span) Duration() time.Duration {
	return s.End - s.Start
}

// String returns a human-readable representation for logging.
func (s Span) String() string {
	return fmt.Sprintf("span %d: %s-%s", s.Index, format.Duration(s.Start), format.Duration(s.End))
}

// ChunkPlan partitions [0, Total) into contiguous spans of at most Max each.
type ChunkPlan struct {
	Total time.Duration
	Max   time.Duration
	Spans []Span
}

// NewChunkPlan computes the plan for an input of the given duration.
//
// If total <= limit the plan has exactly one span [0, total), including the
// degenerate [0, 0) for silent or empty media. Otherwise it has
// ceil(total/limit) spans of length limit, except the last, whose length is
// total-(n-1)*limit and always positive.
func NewChunkPlan(total, limit time.Duration) (ChunkPlan, error) {
	if limit <= 0 {
		return ChunkPlan{}, fmt.Errorf("%w: max segment %v must be positive", ErrInvalidPlan, limit)
	}
	if total < 0 {
		return ChunkPlan{}, fmt.Errorf("%w: negative duration %v", ErrInvalidPlan, total)
	}

	if total <= limit {
		return ChunkPlan{
			Total: total,
			Max:   limit,
			Spans: []Span{{Index: 0, Start: 0, End: total}},
		}, nil
	}

	n := int((total + limit - 1) / limit)
	spans := make([]Span, n)
	for i := range spans {
		start := time.Duration(i) * limit
		spans[i] = Span{
			Index: i,
			Start: start,
			End:   min(start+limit, total),
		}
	}

	return ChunkPlan{Total: total, Max: limit, Spans: spans}, nil
}

// Len returns the number of spans.
func (p ChunkPlan) Len() int {
	return len(p.Spans)
}

// NeedsSplit reports whether the input must be segmented before recognition.
func (p ChunkPlan) NeedsSplit() bool {
	return len(p.Spans) > 1
}
