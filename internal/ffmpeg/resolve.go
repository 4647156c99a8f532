package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// minFFmpegMajorVersion is the minimum supported ffmpeg version.
// Older builds lack the output-seeking accuracy the segmenter relies on.
const minFFmpegMajorVersion = 4

// Environment variables for custom binary paths.
const (
	EnvFFmpegPath  = "FFMPEG_PATH"
	EnvFFprobePath = "FFPROBE_PATH"
)

// Binaries holds resolved tool paths. FFprobe may be empty: probing then
// falls back to FFmpeg-only strategies.
type Binaries struct {
	FFmpeg  string
	FFprobe string
}

// ---------------------------------------------------------------------------
// Resolver - testable binary resolution with dependency injection
// ---------------------------------------------------------------------------

// Resolver finds the ffmpeg and ffprobe binaries.
type Resolver struct {
	stat   fileStatter
	env    envProvider
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileStatter sets the file statter implementation.
func WithFileStatter(s fileStatter) ResolverOption {
	return func(r *Resolver) { r.stat = s }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithLogger sets the logger used for resolution warnings.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver with the given options.
// Uses production defaults if no options are provided.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		stat:   osFileStatter{},
		env:    osEnvProvider{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds both binaries. For each one the precedence is:
//  1. explicit path from configuration (error if set but missing)
//  2. FFMPEG_PATH / FFPROBE_PATH environment variable (error if set but missing)
//  3. system PATH
//
// A missing ffmpeg is fatal; a missing ffprobe is logged and tolerated.
func (r *Resolver) Resolve(_ context.Context, explicit Binaries) (Binaries, error) {
	ffmpegPath, err := r.find("ffmpeg", explicit.FFmpeg, EnvFFmpegPath)
	if err != nil {
		return Binaries{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	ffprobePath, err := r.find("ffprobe", explicit.FFprobe, EnvFFprobePath)
	if err != nil {
		r.logger.Warn("ffprobe unavailable, probing with ffmpeg only",
			slog.String("error", fmt.Errorf("%w: %v", ErrProbeNotFound, err).Error()))
		ffprobePath = ""
	}

	return Binaries{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
}

// find resolves a single binary.
func (r *Resolver) find(name, configured, envKey string) (string, error) {
	if configured != "" {
		if _, err := r.stat.Stat(configured); err != nil {
			return "", fmt.Errorf("configured path %q not usable: %v", configured, err)
		}
		return configured, nil
	}

	if envPath := r.env.Getenv(envKey); envPath != "" {
		if _, err := r.stat.Stat(envPath); err != nil {
			return "", fmt.Errorf("%s is set to %q but binary not found", envKey, envPath)
		}
		return envPath, nil
	}

	path, err := r.env.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not in PATH (%s)", name, installHint)
	}
	return path, nil
}

// installHint is appended to lookup failures.
const installHint = "install ffmpeg, e.g. apt install ffmpeg, or set " + EnvFFmpegPath

// VersionChecker verifies FFmpeg version requirements.
type VersionChecker struct {
	executor *Executor
	logger   *slog.Logger
}

// NewVersionChecker creates a VersionChecker.
func NewVersionChecker(executor *Executor, logger *slog.Logger) *VersionChecker {
	if executor == nil {
		executor = DefaultExecutor()
	}
	return &VersionChecker{executor: executor, logger: logger}
}

// Check reports the detected major version, or 0 if it could not be parsed.
// A version below the minimum is logged but does not fail.
func (vc *VersionChecker) Check(ctx context.Context, ffmpegPath string) int {
	out, err := vc.executor.Run(ctx, ffmpegPath, []string{"-version"})
	if err != nil && out.Stdout == "" {
		return 0
	}

	major := parseMajorVersion(out.Stdout)
	if major > 0 && major < minFFmpegMajorVersion {
		vc.logger.Warn("ffmpeg version below recommended minimum",
			slog.Int("detected", major),
			slog.Int("minimum", minFFmpegMajorVersion))
	}
	return major
}

// parseMajorVersion extracts the major version from "ffmpeg version 6.1.1 ..."
// or "ffmpeg version n6.1.1 ...". Returns 0 when the banner is unrecognized.
func parseMajorVersion(banner string) int {
	first, _, _ := strings.Cut(banner, "\n")
	var major int
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err == nil {
		return major
	}
	if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err == nil {
		return major
	}
	return 0
}
