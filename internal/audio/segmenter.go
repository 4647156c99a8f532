package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/nhype/gigaam-inference/internal/ffmpeg"
	"github.com/nhype/gigaam-inference/internal/format"
)

// Compile-time interface implementation check.
var _ Segmenter = (*FFmpegSegmenter)(nil)

// Segment is one materialized span of the source audio.
// The file at Path belongs to the workspace it was created in.
type Segment struct {
	Path  string        // Absolute path to the segment file.
	Index int           // Zero-based index for ordering.
	Start time.Duration // Start timestamp in the source audio.
	End   time.Duration // End timestamp in the source audio.
}

// Duration returns the length of this segment.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// String returns a human-readable representation for logging.
func (s Segment) String() string {
	return fmt.Sprintf("segment %d: %s-%s",
		s.Index,
		format.Duration(s.Start),
		format.Duration(s.End))
}

// Segmenter materializes every span of a plan as a separate file.
type Segmenter interface {
	// Split returns one segment per plan span, ordered by index. On error no
	// segment files are left behind in ws.
	Split(ctx context.Context, ws *Workspace, in Input, plan ChunkPlan) ([]Segment, error)
}

// Segment encoding: the format the recognizer models are trained on.
const (
	segmentSampleRate = 16000
	segmentChannels   = 1
	segmentCodec      = "pcm_s16le"
)

// FFmpegSegmenter extracts spans by re-encoding, which makes cuts
// sample-accurate instead of snapping to packet boundaries as stream copy does.
type FFmpegSegmenter struct {
	ffmpegPath string

	// Injectable dependencies (defaults to OS implementations).
	cmd    commandRunner
	stat   fileStatter
	files  fileOpener
	logger *slog.Logger
}

// SegmenterOption configures an FFmpegSegmenter.
type SegmenterOption func(*FFmpegSegmenter)

// WithSegmenterCommandRunner sets the command runner.
func WithSegmenterCommandRunner(r commandRunner) SegmenterOption {
	return func(s *FFmpegSegmenter) { s.cmd = r }
}

// WithSegmenterFileStatter sets the file statter used to verify output.
func WithSegmenterFileStatter(st fileStatter) SegmenterOption {
	return func(s *FFmpegSegmenter) { s.stat = st }
}

// WithSegmenterFileOpener sets the file opener used to count output samples.
func WithSegmenterFileOpener(o fileOpener) SegmenterOption {
	return func(s *FFmpegSegmenter) { s.files = o }
}

// WithSegmenterLogger sets the logger.
func WithSegmenterLogger(l *slog.Logger) SegmenterOption {
	return func(s *FFmpegSegmenter) { s.logger = l }
}

// NewFFmpegSegmenter creates an FFmpegSegmenter.
func NewFFmpegSegmenter(ffmpegPath string, opts ...SegmenterOption) (*FFmpegSegmenter, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	s := &FFmpegSegmenter{
		ffmpegPath: ffmpegPath,
		cmd:        ffmpeg.DefaultExecutor(),
		stat:       osFileStatter{},
		files:      osFileOpener{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Split extracts the spans one after another. Each produced file is checked
// to exist and hold samples; a missing or empty segment fails the whole split
// rather than silently shortening the transcript.
func (s *FFmpegSegmenter) Split(ctx context.Context, ws *Workspace, in Input, plan ChunkPlan) ([]Segment, error) {
	segments := make([]Segment, 0, plan.Len())

	cleanup := func() {
		for _, seg := range segments {
			if err := ws.Remove(seg.Path); err != nil {
				s.logger.Warn("failed to remove segment", slog.String("path", seg.Path), slog.Any("error", err))
			}
		}
	}

	for _, span := range plan.Spans {
		if err := ctx.Err(); err != nil {
			cleanup()
			return nil, err
		}

		seg := Segment{
			Path:  ws.Path(fmt.Sprintf("segment_%03d.wav", span.Index)),
			Index: span.Index,
			Start: span.Start,
			End:   span.End,
		}
		// Record before running so a partially written file is cleaned up too.
		segments = append(segments, seg)

		if err := s.extract(ctx, in.Path, seg); err != nil {
			cleanup()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		s.logger.Debug("segment extracted", slog.String("segment", seg.String()))
	}

	return segments, nil
}

// extract runs one FFmpeg invocation. Seeking with -ss/-to after -i decodes
// from the start, trading speed for exact boundaries.
func (s *FFmpegSegmenter) extract(ctx context.Context, inputPath string, seg Segment) error {
	args := []string{
		"-hide_banner", "-nostdin",
		"-y",
		"-i", inputPath,
		"-ss", formatFFmpegTime(seg.Start),
		"-to", formatFFmpegTime(seg.End),
	}
	args = append(args, segmentEncodingArgs()...)
	args = append(args, seg.Path)

	out, err := s.cmd.Run(ctx, s.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: %s: %v: %s", ErrSegmentation, seg, err, lastLine(out.Stderr))
	}

	info, err := s.stat.Stat(seg.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: output missing: %v", ErrSegmentation, seg, err)
	}
	frames, err := s.countFrames(seg.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSegmentation, seg, err)
	}
	if frames == 0 {
		return fmt.Errorf("%w: %s: output holds no audio (%d bytes)", ErrSegmentation, seg, info.Size())
	}
	return nil
}

// countFrames returns the number of sample frames in a written segment.
func (s *FFmpegSegmenter) countFrames(path string) (int64, error) {
	f, err := s.files.Open(path)
	if err != nil {
		return 0, fmt.Errorf("output unreadable: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, ok := readPCMInfo(f)
	if !ok {
		return 0, fmt.Errorf("output is not a PCM WAV file")
	}
	return info.frames, nil
}

// segmentEncodingArgs returns the FFmpeg arguments for segment encoding:
// 16 kHz mono signed 16-bit PCM WAV, video and metadata dropped. Without
// -bitexact the muxer adds a LIST/INFO chunk naming the encoder.
func segmentEncodingArgs() []string {
	return []string{
		"-vn",
		"-map_metadata", "-1",
		"-bitexact",
		"-ac", fmt.Sprint(segmentChannels),
		"-ar", fmt.Sprint(segmentSampleRate),
		"-c:a", segmentCodec,
	}
}

// formatFFmpegTime formats a duration as HH:MM:SS.ffffff using integer
// arithmetic so adjacent boundaries print identically.
func formatFFmpegTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	us := d.Microseconds()
	h := us / 3_600_000_000
	m := us / 60_000_000 % 60
	sec := us / 1_000_000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%06d", h, m, sec, us%1_000_000)
}

// lastLine returns the last non-empty line of FFmpeg's stderr, which carries
// the actual error after the banner and stream dumps.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
