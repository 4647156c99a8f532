// Package transcribe turns one audio input into one transcript: it probes the
// duration, splits long inputs into bounded segments, recognizes them and
// joins the results in index order.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nhype/gigaam-inference/internal/audio"
	"github.com/nhype/gigaam-inference/internal/recognize"
)

// Result is the outcome of one successful run.
type Result struct {
	JobID      string
	Filename   string
	Duration   time.Duration
	Transcript string
	Segments   int
}

// Pipeline runs the transcription flow for one input at a time. A Pipeline
// is safe for concurrent use; runs share nothing but the recognizer handle.
type Pipeline struct {
	prober    audio.Prober
	segmenter audio.Segmenter
	handle    *recognize.Handle

	maxSegment time.Duration
	parallel   int
	timeout    time.Duration
	tempDir    string
	verbatim   bool

	logger *slog.Logger
	tracer trace.Tracer
	ins    instruments
	hook   StateHook
	newID  func() string
}

// Option configures a Pipeline.
type Option func(*pipelineConfig)

type pipelineConfig struct {
	maxSegment time.Duration
	parallel   int
	timeout    time.Duration
	tempDir    string
	verbatim   bool
	logger     *slog.Logger
	tracerProv trace.TracerProvider
	meterProv  metric.MeterProvider
	hook       StateHook
	newID      func() string
}

// WithMaxSegment sets the longest audio span sent to the recognizer in one call.
func WithMaxSegment(d time.Duration) Option {
	return func(c *pipelineConfig) {
		if d > 0 {
			c.maxSegment = d
		}
	}
}

// WithSegmentParallel sets how many segments of one request are recognized
// at once. 1 keeps calls strictly sequential.
func WithSegmentParallel(n int) Option {
	return func(c *pipelineConfig) {
		if n > 0 {
			c.parallel = n
		}
	}
}

// WithTimeout bounds the total processing time of one run. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *pipelineConfig) { c.timeout = d }
}

// WithTempDir sets the parent directory for per-run workspaces.
func WithTempDir(dir string) Option {
	return func(c *pipelineConfig) { c.tempDir = dir }
}

// WithVerbatimJoin keeps a separator for every segment, empty ones included.
func WithVerbatimJoin(v bool) Option {
	return func(c *pipelineConfig) { c.verbatim = v }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *pipelineConfig) { c.logger = l }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *pipelineConfig) { c.tracerProv = tp }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *pipelineConfig) { c.meterProv = mp }
}

// WithStateHook registers an observer for state transitions.
func WithStateHook(h StateHook) Option {
	return func(c *pipelineConfig) { c.hook = h }
}

// withIDGenerator replaces uuid generation (for testing).
func withIDGenerator(fn func() string) Option {
	return func(c *pipelineConfig) { c.newID = fn }
}

// New creates a Pipeline. The handle may still be loading; runs started
// before it is ready fail with ErrModelNotReady.
func New(prober audio.Prober, segmenter audio.Segmenter, handle *recognize.Handle, opts ...Option) (*Pipeline, error) {
	if prober == nil {
		return nil, errors.New("transcribe: prober is required")
	}
	if segmenter == nil {
		return nil, errors.New("transcribe: segmenter is required")
	}
	if handle == nil {
		return nil, errors.New("transcribe: recognizer handle is required")
	}

	cfg := pipelineConfig{
		maxSegment: audio.DefaultMaxSegment,
		parallel:   1,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.tracerProv == nil {
		cfg.tracerProv = otel.GetTracerProvider()
	}

	return &Pipeline{
		prober:     prober,
		segmenter:  segmenter,
		handle:     handle,
		maxSegment: cfg.maxSegment,
		parallel:   cfg.parallel,
		timeout:    cfg.timeout,
		tempDir:    cfg.tempDir,
		verbatim:   cfg.verbatim,
		logger:     cfg.logger,
		tracer:     cfg.tracerProv.Tracer(instrumentationName),
		ins:        newInstruments(cfg.meterProv),
		hook:       cfg.hook,
		newID:      cfg.newID,
	}, nil
}

// MaxSegment returns the configured segment length limit.
func (p *Pipeline) MaxSegment() time.Duration {
	return p.maxSegment
}

// Handle returns the recognizer handle the pipeline consults.
func (p *Pipeline) Handle() *recognize.Handle {
	return p.handle
}

// run carries per-request state through the steps of Run.
type run struct {
	id     string
	in     audio.Input
	logger *slog.Logger
	span   trace.Span
	state  State
}

func (p *Pipeline) enter(r *run, s State) {
	r.state = s
	r.span.AddEvent(s.String())
	r.logger.Debug("pipeline state", slog.String("state", s.String()))
	if p.hook != nil {
		p.hook(r.id, s)
	}
}

// Run transcribes in. All temporary files are removed before Run returns,
// on every path. Errors match the package sentinels with errors.Is.
func (p *Pipeline) Run(ctx context.Context, in audio.Input) (Result, error) {
	start := time.Now()
	id := p.newID()

	ctx, span := p.tracer.Start(ctx, "transcribe.Run", trace.WithAttributes(
		attribute.String("job.id", id),
		attribute.String("file.name", in.Filename),
		attribute.Int64("file.size", in.Size),
	))
	defer span.End()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	r := &run{
		id:     id,
		in:     in,
		logger: p.logger.With(slog.String("job_id", id), slog.String("file", in.Filename)),
		span:   span,
	}

	res, err := p.run(ctx, r)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", ErrTimeout, p.timeout, err)
		}
		p.enter(r, StateFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.ins.recordRun(ctx, outcome(err), time.Since(start))
		p.logFailure(r, err)
		return Result{}, err
	}

	p.enter(r, StateDone)
	p.ins.recordRun(ctx, "ok", time.Since(start))
	r.logger.Info("transcription complete",
		slog.Duration("audio", res.Duration),
		slog.Int("segments", res.Segments),
		slog.Int("chars", len(res.Transcript)),
		slog.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, r *run) (Result, error) {
	p.enter(r, StateReceived)
	if err := r.in.Validate(); err != nil {
		return Result{}, err
	}

	rec, err := p.handle.Recognizer()
	if err != nil {
		return Result{}, err
	}

	d, err := p.prober.Probe(ctx, r.in.Path)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if !errors.Is(err, audio.ErrUnreadableMedia) {
			err = fmt.Errorf("%w: %w", audio.ErrUnreadableMedia, err)
		}
		return Result{}, err
	}
	p.enter(r, StateProbed)
	r.span.SetAttributes(attribute.Float64("audio.duration_s", d.Seconds()))

	res := Result{JobID: r.id, Filename: r.in.Filename, Duration: d}
	if d == 0 {
		r.logger.Info("zero-length audio, skipping recognition")
		p.enter(r, StateDirect)
		p.enter(r, StateAssembling)
		return res, nil
	}

	plan, err := audio.NewChunkPlan(d, p.maxSegment)
	if err != nil {
		return Result{}, err
	}
	res.Segments = plan.Len()
	p.ins.recordAudio(ctx, d, plan.Len())

	traced := &tracedRecognizer{next: rec, tracer: p.tracer, hist: p.ins.recognizer}

	var texts []string
	if plan.NeedsSplit() {
		texts, err = p.chunked(ctx, r, traced, plan)
	} else {
		texts, err = p.direct(ctx, r, traced)
	}
	if err != nil {
		return Result{}, err
	}

	p.enter(r, StateAssembling)
	if p.verbatim {
		res.Transcript = JoinVerbatim(texts)
	} else {
		res.Transcript = Join(texts)
	}
	return res, nil
}

// direct recognizes the whole input in one call.
func (p *Pipeline) direct(ctx context.Context, r *run, rec recognize.Recognizer) ([]string, error) {
	p.enter(r, StateDirect)
	whole := []audio.Segment{{Path: r.in.Path, Index: 0}}
	return TranscribeAll(ctx, whole, rec, 1, nil)
}

// chunked splits the input inside a per-run workspace and recognizes each
// segment. The workspace is removed on every exit path; each segment file
// is removed as soon as its text is in.
func (p *Pipeline) chunked(ctx context.Context, r *run, rec recognize.Recognizer, plan audio.ChunkPlan) ([]string, error) {
	p.enter(r, StateChunked)

	ws, err := audio.NewWorkspace(p.tempDir, audio.WithLabel(shortID(r.id)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrSegmentation, err)
	}
	defer func() {
		if err := ws.Close(); err != nil {
			r.logger.Warn("failed to remove workspace", slog.String("dir", ws.Dir()), slog.Any("error", err))
		}
	}()

	r.logger.Info("splitting audio",
		slog.Duration("duration", plan.Total),
		slog.Duration("max_segment", plan.Max),
		slog.Int("segments", plan.Len()))

	segments, err := p.segmenter.Split(ctx, ws, r.in, plan)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, audio.ErrSegmentation) {
			err = fmt.Errorf("%w: %w", audio.ErrSegmentation, err)
		}
		return nil, err
	}
	if len(segments) != plan.Len() {
		return nil, fmt.Errorf("%w: planned %d segments, got %d", audio.ErrSegmentation, plan.Len(), len(segments))
	}

	release := func(seg audio.Segment) {
		if err := ws.Remove(seg.Path); err != nil {
			r.logger.Warn("failed to remove segment", slog.String("path", seg.Path), slog.Any("error", err))
		}
	}
	return TranscribeAll(ctx, segments, rec, p.parallel, release)
}

func (p *Pipeline) logFailure(r *run, err error) {
	attrs := []any{slog.Any("error", err)}
	var segErr *SegmentError
	if errors.As(err, &segErr) {
		attrs = append(attrs, slog.Int("segment", segErr.Index))
	}
	switch {
	case errors.Is(err, ErrUnsupportedMedia), errors.Is(err, ErrUnreadableMedia), errors.Is(err, ErrModelNotReady):
		r.logger.Warn("transcription rejected", attrs...)
	case errors.Is(err, context.Canceled):
		r.logger.Info("transcription canceled", attrs...)
	default:
		r.logger.Error("transcription failed", attrs...)
	}
}

// outcome labels a failed run for metrics.
func outcome(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedMedia):
		return "unsupported"
	case errors.Is(err, ErrUnreadableMedia):
		return "unreadable"
	case errors.Is(err, ErrModelNotReady):
		return "not_ready"
	case errors.Is(err, ErrSegmentation):
		return "segmentation"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
