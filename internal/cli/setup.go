package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nhype/gigaam-inference/internal/config"
	"github.com/nhype/gigaam-inference/internal/ffmpeg"
	"github.com/nhype/gigaam-inference/internal/lang"
	"github.com/nhype/gigaam-inference/internal/recognize"
	"github.com/nhype/gigaam-inference/internal/server"
	"github.com/nhype/gigaam-inference/internal/transcribe"
)

// loadConfig returns the effective configuration, or the built-in defaults.
func loadConfig(env *Env, defaults bool) (config.Config, error) {
	if defaults {
		return config.Default(), nil
	}
	return env.ConfigLoader.Load(env.ConfigPath)
}

// clampParallel constrains the per-request fan-out to [1, MaxRecommendedParallel].
func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > transcribe.MaxRecommendedParallel {
		return transcribe.MaxRecommendedParallel
	}
	return n
}

// recognizerOptions translates the model section for recognize.NewLoader.
func recognizerOptions(cfg config.ModelConfig) (recognize.Options, error) {
	model, err := recognize.ParseModel(cfg.Name)
	if err != nil {
		return recognize.Options{}, err
	}
	return recognize.Options{
		Backend:       cfg.Backend,
		Model:         model,
		Command:       cfg.Command,
		BaseURL:       cfg.BaseURL,
		APIKey:        cfg.APIKey,
		Language:      lang.Base(cfg.Language),
		MaxConcurrent: cfg.MaxConcurrent,
		MaxRetries:    cfg.MaxRetries,
		Serialize:     cfg.Serialize,
	}, nil
}

// pipelineOptions translates the pipeline section for transcribe.New.
func pipelineOptions(cfg config.PipelineConfig, logger *slog.Logger) []transcribe.Option {
	return []transcribe.Option{
		transcribe.WithMaxSegment(cfg.MaxSegment()),
		transcribe.WithSegmentParallel(clampParallel(cfg.SegmentParallel)),
		transcribe.WithTimeout(cfg.RequestTimeout),
		transcribe.WithTempDir(cfg.TempDir),
		transcribe.WithVerbatimJoin(cfg.VerbatimJoin),
		transcribe.WithLogger(logger),
	}
}

// stack is what both serve and transcribe need before running the pipeline.
type stack struct {
	handle *recognize.Handle
	runner server.Runner
}

// buildStack resolves ffmpeg, prepares the model handle (not yet loaded) and
// builds the pipeline.
func buildStack(ctx context.Context, env *Env, cfg config.Config, logger *slog.Logger, extra ...transcribe.Option) (stack, error) {
	opts, err := recognizerOptions(cfg.Model)
	if err != nil {
		return stack{}, err
	}

	bins, err := env.FFmpegResolver.Resolve(ctx, ffmpeg.Binaries{
		FFmpeg:  cfg.FFmpeg.FFmpegPath,
		FFprobe: cfg.FFmpeg.FFprobePath,
	}, logger)
	if err != nil {
		return stack{}, err
	}

	loader, err := env.RecognizerFactory.NewLoader(opts, logger)
	if err != nil {
		return stack{}, fmt.Errorf("configure recognizer: %w", err)
	}
	handle := recognize.NewHandle(opts.Model, loader)

	popts := append(pipelineOptions(cfg.Pipeline, logger), extra...)
	runner, err := env.PipelineFactory.NewPipeline(bins, handle, logger, popts...)
	if err != nil {
		return stack{}, fmt.Errorf("build pipeline: %w", err)
	}
	return stack{handle: handle, runner: runner}, nil
}
