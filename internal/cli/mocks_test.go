package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/nhype/gigaam-inference/internal/audio"
	"github.com/nhype/gigaam-inference/internal/config"
	"github.com/nhype/gigaam-inference/internal/ffmpeg"
	"github.com/nhype/gigaam-inference/internal/recognize"
	"github.com/nhype/gigaam-inference/internal/server"
	"github.com/nhype/gigaam-inference/internal/telemetry"
	"github.com/nhype/gigaam-inference/internal/transcribe"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func(flagPath string) (config.Config, error)
	path     string

	mu        sync.Mutex
	loadCalls []string
}

func (m *mockConfigLoader) Load(flagPath string) (config.Config, error) {
	m.mu.Lock()
	m.loadCalls = append(m.loadCalls, flagPath)
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc(flagPath)
	}
	return config.Default(), nil
}

func (m *mockConfigLoader) Path(flagPath string) (string, bool, error) {
	if flagPath != "" {
		return flagPath, true, nil
	}
	return m.path, false, nil
}

func (m *mockConfigLoader) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	err error

	mu       sync.Mutex
	explicit []ffmpeg.Binaries
}

func (m *mockFFmpegResolver) Resolve(_ context.Context, explicit ffmpeg.Binaries, _ *slog.Logger) (ffmpeg.Binaries, error) {
	m.mu.Lock()
	m.explicit = append(m.explicit, explicit)
	m.mu.Unlock()

	if m.err != nil {
		return ffmpeg.Binaries{}, m.err
	}
	return ffmpeg.Binaries{FFmpeg: "/usr/bin/ffmpeg", FFprobe: "/usr/bin/ffprobe"}, nil
}

func (m *mockFFmpegResolver) Explicit() []ffmpeg.Binaries {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ffmpeg.Binaries(nil), m.explicit...)
}

// ---------------------------------------------------------------------------
// Mock RecognizerFactory
// ---------------------------------------------------------------------------

// mockRecognizerFactory hands out a loader that yields rec (or loadErr).
// loaded is closed the first time the loader runs.
type mockRecognizerFactory struct {
	rec     recognize.Recognizer
	newErr  error
	loadErr error

	once   sync.Once
	loaded chan struct{}

	mu   sync.Mutex
	opts []recognize.Options
}

func newMockRecognizerFactory() *mockRecognizerFactory {
	return &mockRecognizerFactory{
		rec:    &recognize.MockRecognizer{},
		loaded: make(chan struct{}),
	}
}

func (m *mockRecognizerFactory) NewLoader(opts recognize.Options, _ *slog.Logger) (recognize.Loader, error) {
	m.mu.Lock()
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	if m.newErr != nil {
		return nil, m.newErr
	}
	return func(context.Context) (recognize.Recognizer, error) {
		defer m.once.Do(func() { close(m.loaded) })
		if m.loadErr != nil {
			return nil, m.loadErr
		}
		return m.rec, nil
	}, nil
}

func (m *mockRecognizerFactory) Options() []recognize.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recognize.Options(nil), m.opts...)
}

// ---------------------------------------------------------------------------
// Mock PipelineFactory
// ---------------------------------------------------------------------------

// mockPipelineFactory builds a real pipeline around a fixed-duration prober
// and a segmenter that writes placeholder files, so no ffmpeg is needed.
type mockPipelineFactory struct {
	duration time.Duration
	probeErr error
	newErr   error

	mu   sync.Mutex
	bins []ffmpeg.Binaries
}

func (m *mockPipelineFactory) NewPipeline(bins ffmpeg.Binaries, handle *recognize.Handle, _ *slog.Logger, opts ...transcribe.Option) (server.Runner, error) {
	m.mu.Lock()
	m.bins = append(m.bins, bins)
	m.mu.Unlock()

	if m.newErr != nil {
		return nil, m.newErr
	}
	prober := &fixedProber{d: m.duration, err: m.probeErr}
	return transcribe.New(prober, placeholderSegmenter{}, handle, opts...)
}

type fixedProber struct {
	d   time.Duration
	err error
}

func (p *fixedProber) Probe(context.Context, string) (time.Duration, error) {
	return p.d, p.err
}

type placeholderSegmenter struct{}

func (placeholderSegmenter) Split(_ context.Context, ws *audio.Workspace, _ audio.Input, plan audio.ChunkPlan) ([]audio.Segment, error) {
	segments := make([]audio.Segment, 0, len(plan.Spans))
	for i, span := range plan.Spans {
		f, err := ws.Create(fmt.Sprintf("segment_%03d.wav", i))
		if err != nil {
			return nil, err
		}
		_, _ = f.WriteString("RIFF")
		_ = f.Close()
		segments = append(segments, audio.Segment{Path: f.Name(), Index: i, Start: span.Start, End: span.End})
	}
	return segments, nil
}

// ---------------------------------------------------------------------------
// Mock TelemetryFactory
// ---------------------------------------------------------------------------

type mockTelemetryFactory struct {
	err error

	mu       sync.Mutex
	services []string
}

func (m *mockTelemetryFactory) Setup(_ context.Context, service, _ string, _ config.TelemetryConfig, _ *slog.Logger) (*telemetry.Providers, error) {
	m.mu.Lock()
	m.services = append(m.services, service)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	return &telemetry.Providers{
		Tracer: tracenoop.NewTracerProvider(),
		Meter:  noop.NewMeterProvider(),
	}, nil
}

func (m *mockTelemetryFactory) Services() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.services...)
}
