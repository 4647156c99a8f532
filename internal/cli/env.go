package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/nhype/gigaam-inference/internal/audio"
	"github.com/nhype/gigaam-inference/internal/config"
	"github.com/nhype/gigaam-inference/internal/ffmpeg"
	"github.com/nhype/gigaam-inference/internal/recognize"
	"github.com/nhype/gigaam-inference/internal/server"
	"github.com/nhype/gigaam-inference/internal/telemetry"
	"github.com/nhype/gigaam-inference/internal/transcribe"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions.
type Env struct {
	// I/O
	Stdout io.Writer
	Stderr io.Writer

	// ConfigPath is the --config flag value, bound by the root command.
	ConfigPath string
	// Version is reported by GET / and attached to telemetry.
	Version string

	// Factories for domain objects
	ConfigLoader      ConfigLoader
	FFmpegResolver    FFmpegResolver
	RecognizerFactory RecognizerFactory
	PipelineFactory   PipelineFactory
	TelemetryFactory  TelemetryFactory
}

// ConfigLoader loads the effective configuration.
type ConfigLoader interface {
	// Load resolves flagPath (may be empty) to a file and loads it.
	Load(flagPath string) (config.Config, error)
	// Path reports which file Load would read and whether it was named explicitly.
	Path(flagPath string) (string, bool, error)
}

// FFmpegResolver finds the ffmpeg and ffprobe binaries.
type FFmpegResolver interface {
	Resolve(ctx context.Context, explicit ffmpeg.Binaries, logger *slog.Logger) (ffmpeg.Binaries, error)
}

// RecognizerFactory builds the loader behind the model handle.
type RecognizerFactory interface {
	NewLoader(opts recognize.Options, logger *slog.Logger) (recognize.Loader, error)
}

// PipelineFactory builds the transcription pipeline.
type PipelineFactory interface {
	NewPipeline(bins ffmpeg.Binaries, handle *recognize.Handle, logger *slog.Logger, opts ...transcribe.Option) (server.Runner, error)
}

// TelemetryFactory installs tracing and metrics providers.
type TelemetryFactory interface {
	Setup(ctx context.Context, service, version string, cfg config.TelemetryConfig, logger *slog.Logger) (*telemetry.Providers, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) { e.Stdout = w }
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithVersion sets the version string.
func WithVersion(v string) EnvOption {
	return func(e *Env) { e.Version = v }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) { e.FFmpegResolver = r }
}

// WithRecognizerFactory sets the recognizer factory.
func WithRecognizerFactory(f RecognizerFactory) EnvOption {
	return func(e *Env) { e.RecognizerFactory = f }
}

// WithPipelineFactory sets the pipeline factory.
func WithPipelineFactory(f PipelineFactory) EnvOption {
	return func(e *Env) { e.PipelineFactory = f }
}

// WithTelemetryFactory sets the telemetry factory.
func WithTelemetryFactory(f TelemetryFactory) EnvOption {
	return func(e *Env) { e.TelemetryFactory = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
		Version:           "dev",
		ConfigLoader:      defaultConfigLoader{},
		FFmpegResolver:    defaultFFmpegResolver{},
		RecognizerFactory: defaultRecognizerFactory{},
		PipelineFactory:   defaultPipelineFactory{},
		TelemetryFactory:  defaultTelemetryFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

type defaultConfigLoader struct{}

func (defaultConfigLoader) Load(flagPath string) (config.Config, error) {
	path, explicit, err := config.ResolvePath(flagPath)
	if err != nil {
		// No home directory: run on defaults and environment.
		return config.Load("", false)
	}
	return config.Load(path, explicit)
}

func (defaultConfigLoader) Path(flagPath string) (string, bool, error) {
	return config.ResolvePath(flagPath)
}

type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context, explicit ffmpeg.Binaries, logger *slog.Logger) (ffmpeg.Binaries, error) {
	bins, err := ffmpeg.NewResolver(ffmpeg.WithLogger(logger)).Resolve(ctx, explicit)
	if err != nil {
		return ffmpeg.Binaries{}, err
	}
	ffmpeg.NewVersionChecker(nil, logger).Check(ctx, bins.FFmpeg)
	return bins, nil
}

type defaultRecognizerFactory struct{}

func (defaultRecognizerFactory) NewLoader(opts recognize.Options, logger *slog.Logger) (recognize.Loader, error) {
	return recognize.NewLoader(opts, logger)
}

type defaultPipelineFactory struct{}

func (defaultPipelineFactory) NewPipeline(bins ffmpeg.Binaries, handle *recognize.Handle, logger *slog.Logger, opts ...transcribe.Option) (server.Runner, error) {
	prober, err := audio.NewMediaProber(bins, audio.WithProberLogger(logger))
	if err != nil {
		return nil, err
	}
	segmenter, err := audio.NewFFmpegSegmenter(bins.FFmpeg, audio.WithSegmenterLogger(logger))
	if err != nil {
		return nil, err
	}
	return transcribe.New(prober, segmenter, handle, opts...)
}

type defaultTelemetryFactory struct{}

func (defaultTelemetryFactory) Setup(ctx context.Context, service, version string, cfg config.TelemetryConfig, logger *slog.Logger) (*telemetry.Providers, error) {
	return telemetry.Setup(ctx, service, version, cfg, os.Stdout, logger)
}

// Compile-time interface verification.
var (
	_ ConfigLoader      = defaultConfigLoader{}
	_ FFmpegResolver    = defaultFFmpegResolver{}
	_ RecognizerFactory = defaultRecognizerFactory{}
	_ PipelineFactory   = defaultPipelineFactory{}
	_ TelemetryFactory  = defaultTelemetryFactory{}
)
