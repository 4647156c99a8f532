package audio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nhype/gigaam-inference/internal/ffmpeg"
)

// Compile-time interface implementation check.
var _ Prober = (*MediaProber)(nil)

// Prober measures the duration of an audio file.
type Prober interface {
	// Probe returns a duration >= 0, or an error wrapping ErrUnreadableMedia.
	Probe(ctx context.Context, path string) (time.Duration, error)
}

// MediaProber tries several strategies in order and returns the first
// positive duration: a WAV header read, ffprobe format duration, ffprobe
// stream durations, ffprobe JSON, and finally a full ffmpeg decode pass
// (needed for WebM recordings without duration metadata).
type MediaProber struct {
	ffmpegPath  string
	ffprobePath string

	// Injectable dependencies (defaults to OS implementations).
	cmd    commandRunner
	files  fileOpener
	logger *slog.Logger
}

// ProberOption configures a MediaProber.
type ProberOption func(*MediaProber)

// WithProberCommandRunner sets the command runner for MediaProber.
func WithProberCommandRunner(r commandRunner) ProberOption {
	return func(p *MediaProber) { p.cmd = r }
}

// WithProberFileOpener sets the file opener used for WAV header reads.
func WithProberFileOpener(o fileOpener) ProberOption {
	return func(p *MediaProber) { p.files = o }
}

// WithProberLogger sets the logger for strategy fallbacks.
func WithProberLogger(l *slog.Logger) ProberOption {
	return func(p *MediaProber) { p.logger = l }
}

// NewMediaProber creates a MediaProber. FFprobe is optional; FFmpeg is not.
func NewMediaProber(bins ffmpeg.Binaries, opts ...ProberOption) (*MediaProber, error) {
	if bins.FFmpeg == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	p := &MediaProber{
		ffmpegPath:  bins.FFmpeg,
		ffprobePath: bins.FFprobe,
		cmd:         ffmpeg.DefaultExecutor(),
		files:       osFileOpener{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// probeResult is the outcome of one strategy.
type probeResult struct {
	d     time.Duration
	found bool // a numeric duration was read, possibly zero
}

type probeStrategy struct {
	name string
	run  func(ctx context.Context, path string) probeResult
}

// Probe returns the first positive duration any strategy reports.
// When strategies only ever report zero, Probe returns 0 with no error.
func (p *MediaProber) Probe(ctx context.Context, path string) (time.Duration, error) {
	sawZero := false
	for _, s := range p.strategies() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		res := s.run(ctx, path)
		if res.found && res.d > 0 {
			return res.d, nil
		}
		if res.found {
			sawZero = true
		}
		p.logger.Debug("duration strategy inconclusive",
			slog.String("strategy", s.name),
			slog.String("path", path))
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if sawZero {
		return 0, nil
	}
	return 0, fmt.Errorf("%w: cannot determine duration; file may be corrupted or in an unsupported format", ErrUnreadableMedia)
}

func (p *MediaProber) strategies() []probeStrategy {
	s := []probeStrategy{{name: "wav-header", run: p.probeWAVHeader}}
	if p.ffprobePath != "" {
		s = append(s,
			probeStrategy{name: "ffprobe-format", run: p.probeFormatDuration},
			probeStrategy{name: "ffprobe-streams", run: p.probeStreamDurations},
			probeStrategy{name: "ffprobe-json", run: p.probeJSON},
		)
	}
	return append(s, probeStrategy{name: "ffmpeg-decode", run: p.probeDecode})
}

// probeWAVHeader counts the samples in the data chunk, avoiding a process
// spawn for the common case of WAV uploads. A zero count is reported as
// found so the remaining strategies get a chance to disagree.
func (p *MediaProber) probeWAVHeader(_ context.Context, path string) probeResult {
	f, err := p.files.Open(path)
	if err != nil {
		return probeResult{}
	}
	defer func() { _ = f.Close() }()

	info, ok := readPCMInfo(f)
	if !ok {
		return probeResult{}
	}
	return probeResult{d: info.duration(), found: true}
}

// probeFormatDuration asks ffprobe for the container duration.
func (p *MediaProber) probeFormatDuration(ctx context.Context, path string) probeResult {
	out, err := p.cmd.Run(ctx, p.ffprobePath, []string{
		"-v", "quiet", "-show_entries", "format=duration", "-of", "csv=p=0", path,
	})
	if err != nil {
		return probeResult{}
	}
	return parseSecondsLine(strings.TrimSpace(out.Stdout))
}

// probeStreamDurations asks ffprobe for per-stream durations and takes the
// first positive one.
func (p *MediaProber) probeStreamDurations(ctx context.Context, path string) probeResult {
	out, err := p.cmd.Run(ctx, p.ffprobePath, []string{
		"-v", "quiet", "-show_entries", "stream=duration", "-of", "csv=p=0", path,
	})
	if err != nil {
		return probeResult{}
	}

	var best probeResult
	sc := bufio.NewScanner(strings.NewReader(out.Stdout))
	for sc.Scan() {
		res := parseSecondsLine(strings.TrimSpace(sc.Text()))
		if res.found && res.d > 0 {
			return res
		}
		if res.found {
			best = res
		}
	}
	return best
}

// ffprobeJSON is the subset of `ffprobe -print_format json` output we read.
type ffprobeJSON struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		Duration string `json:"duration"`
	} `json:"streams"`
}

// probeJSON reads format then stream durations from ffprobe's JSON output.
func (p *MediaProber) probeJSON(ctx context.Context, path string) probeResult {
	out, err := p.cmd.Run(ctx, p.ffprobePath, []string{
		"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path,
	})
	if err != nil {
		return probeResult{}
	}
	return parseFFprobeJSON(out.Stdout)
}

func parseFFprobeJSON(output string) probeResult {
	var data ffprobeJSON
	if err := json.Unmarshal([]byte(output), &data); err != nil {
		return probeResult{}
	}

	var best probeResult
	candidates := []string{data.Format.Duration}
	for _, s := range data.Streams {
		candidates = append(candidates, s.Duration)
	}
	for _, c := range candidates {
		res := parseSecondsLine(c)
		if res.found && res.d > 0 {
			return res
		}
		if res.found {
			best = res
		}
	}
	return best
}

// probeDecode runs a full ffmpeg decode to a null sink and parses stderr.
func (p *MediaProber) probeDecode(ctx context.Context, path string) probeResult {
	out, err := p.cmd.Run(ctx, p.ffmpegPath, []string{
		"-hide_banner", "-nostdin", "-i", path, "-f", "null", "-",
	})
	// FFmpeg returns non-zero for some inputs it still reports on, so the
	// output is parsed whenever there is any.
	if err != nil && out.Stderr == "" {
		return probeResult{}
	}
	return parseDurationFromFFmpegOutput(out.Stderr)
}

// parseSecondsLine parses a decimal seconds value as printed by ffprobe.
// "N/A", empty, and non-finite values are not found.
func parseSecondsLine(s string) probeResult {
	if s == "" || s == "N/A" {
		return probeResult{}
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		return probeResult{}
	}
	return probeResult{d: SecondsToDuration(sec), found: true}
}

// SecondsToDuration converts fractional seconds to a Duration rounded to the
// microsecond, so plan arithmetic is exact from then on.
func SecondsToDuration(sec float64) time.Duration {
	return time.Duration(math.Round(sec*1e6)) * time.Microsecond
}

var (
	// durationRe matches "Duration: 00:05:23.45" in the input banner.
	durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2})(?:[.,](\d+))?`)
	// progressRe matches "time=00:05:23.45" progress stamps.
	progressRe = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2})(?:\.(\d+))?`)
)

// parseDurationFromFFmpegOutput prefers a positive banner duration and
// falls back to the last progress stamp, which is the decoded length.
func parseDurationFromFFmpegOutput(output string) probeResult {
	var res probeResult
	if m := durationRe.FindStringSubmatch(output); m != nil {
		res = probeResult{d: parseTimeComponents(m[1], m[2], m[3], m[4]), found: true}
		if res.d > 0 {
			return res
		}
	}

	if all := progressRe.FindAllStringSubmatch(output, -1); len(all) > 0 {
		m := all[len(all)-1]
		last := probeResult{d: parseTimeComponents(m[1], m[2], m[3], m[4]), found: true}
		if last.d > 0 || !res.found {
			return last
		}
	}
	return res
}

// parseTimeComponents converts HH, MM, SS and an optional fractional part of
// any precision into a Duration, keeping at most microsecond precision.
func parseTimeComponents(hours, minutes, seconds, fractional string) time.Duration {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	var us int
	if fractional != "" {
		digits := fractional
		if len(digits) > 6 {
			digits = digits[:6]
		}
		us, _ = strconv.Atoi(digits)
		for i := len(digits); i < 6; i++ {
			us *= 10
		}
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(us)*time.Microsecond
}
