package ffmpeg

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
)

// Output holds the captured streams of one FFmpeg or FFprobe invocation.
// FFprobe answers on stdout; FFmpeg writes its diagnostics (durations,
// progress stamps) to stderr.
type Output struct {
	Stdout string
	Stderr string
}

// ---------------------------------------------------------------------------
// Executor - testable FFmpeg execution with dependency injection
// ---------------------------------------------------------------------------

// runFn is the function type for running a command and capturing its output.
type runFn func(ctx context.Context, path string, args []string) (Output, error)

// Executor runs FFmpeg and FFprobe commands with injectable dependencies.
type Executor struct {
	run runFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRunFunc sets a custom run function (for testing).
func WithRunFunc(fn runFn) ExecutorOption {
	return func(e *Executor) { e.run = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		run: defaultRun,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the binary at path and captures stdout and stderr.
// Output is returned even when the command fails: FFmpeg exits non-zero for
// some valid probes, and its stderr is the only diagnostic callers get.
func (e *Executor) Run(ctx context.Context, path string, args []string) (Output, error) {
	return e.run(ctx, path, args)
}

// defaultRun is the production implementation.
// The process is killed when ctx is canceled.
func defaultRun(ctx context.Context, path string, args []string) (Output, error) {
	// #nosec G204 -- path is a resolved ffmpeg/ffprobe binary, args are built internally
	cmd := exec.CommandContext(ctx, path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return Output{Stdout: stdout.String(), Stderr: stderr.String()}, err
}

var (
	defaultExecutor     *Executor
	defaultExecutorOnce sync.Once
)

// DefaultExecutor returns the lazily-initialized process-wide executor.
func DefaultExecutor() *Executor {
	defaultExecutorOnce.Do(func() {
		defaultExecutor = NewExecutor()
	})
	return defaultExecutor
}
