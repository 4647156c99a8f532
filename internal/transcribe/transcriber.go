package transcribe

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nhype/gigaam-inference/internal/audio"
	"github.com/nhype/gigaam-inference/internal/recognize"
)

// MaxRecommendedParallel is the recommended upper limit for per-request
// segment fan-out. The process-wide recognizer limit applies on top.
const MaxRecommendedParallel = 8

// TranscribeAll recognizes segments with at most maxParallel calls in flight
// and returns the texts indexed like segments, whatever order they finish in.
// With maxParallel 1 the calls run strictly in ascending index order.
//
// The first failure cancels the remaining calls and is returned as a
// *SegmentError. If ctx ends first, ctx.Err() is returned. done, when
// non-nil, is called once per segment after its result is in, so the caller
// can release the segment's storage early.
func TranscribeAll(
	ctx context.Context,
	segments []audio.Segment,
	r recognize.Recognizer,
	maxParallel int,
	done func(audio.Segment),
) ([]string, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	if maxParallel < 1 {
		maxParallel = 1
	}

	results := make([]string, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for i, seg := range segments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			text, err := r.Recognize(gctx, seg.Path)
			if err != nil {
				if gctx.Err() != nil && ctx.Err() != nil {
					return ctx.Err()
				}
				return &SegmentError{Index: seg.Index, Total: len(segments), Err: err}
			}
			results[i] = text
			if done != nil {
				done(seg)
			}
			return nil
		})
	}

	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}
