package recognize

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nhype/gigaam-inference/internal/ffmpeg"
)

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// DecodeExecOutput exports decodeExecOutput for testing.
var DecodeExecOutput = decodeExecOutput

// ClassifyError exports classifyError for testing.
var ClassifyError = classifyError

// OpenAIClient is the client surface a test double must implement.
type OpenAIClient interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// CommandRunner exports commandRunner for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (ffmpeg.Output, error)
}

// WithLookPath replaces exec.LookPath in the exec loader.
func WithLookPath(fn func(string) (string, error)) LoaderOption {
	return func(d *loaderDeps) { d.lookPath = fn }
}

// WithRunner replaces the exec command runner.
func WithRunner(r CommandRunner) LoaderOption {
	return func(d *loaderDeps) { d.runner = r }
}

// WithClient replaces the go-openai client.
func WithClient(c OpenAIClient) LoaderOption {
	return func(d *loaderDeps) { d.client = c }
}
