package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/nhype/gigaam-inference/internal/ffmpeg"
)

// commandRunner executes an external command and captures its output.
// *ffmpeg.Executor satisfies it.
type commandRunner interface {
	Run(ctx context.Context, name string, args []string) (ffmpeg.Output, error)
}

// Compile-time interface verification.
var (
	_ Recognizer    = (*ExecRecognizer)(nil)
	_ commandRunner = (*ffmpeg.Executor)(nil)
)

// ExecRecognizer runs an external inference command once per segment:
//
//	<command...> --audio <path> --model <name> [--language <code>]
//
// The command prints either a JSON object {"text": "..."} or plain text.
type ExecRecognizer struct {
	argv     []string
	model    Model
	language string
	cmd      commandRunner
}

// ExecOption configures an ExecRecognizer.
type ExecOption func(*ExecRecognizer)

// WithExecRunner sets the command runner (for testing).
func WithExecRunner(r commandRunner) ExecOption {
	return func(e *ExecRecognizer) { e.cmd = r }
}

// WithExecLanguage passes --language to the command.
func WithExecLanguage(code string) ExecOption {
	return func(e *ExecRecognizer) { e.language = code }
}

// NewExecRecognizer parses command with shell quoting rules.
func NewExecRecognizer(command string, model Model, opts ...ExecOption) (*ExecRecognizer, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse recognizer command: %w", err)
	}
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}

	e := &ExecRecognizer{
		argv:  args,
		model: model,
		cmd:   ffmpeg.NewExecutor(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Binary returns the program the recognizer will execute.
func (e *ExecRecognizer) Binary() string {
	return e.argv[0]
}

// Args returns the full argument list for one segment, excluding the binary.
func (e *ExecRecognizer) Args(audioPath string) []string {
	args := append([]string{}, e.argv[1:]...)
	args = append(args, "--audio", audioPath, "--model", string(e.model))
	if e.language != "" {
		args = append(args, "--language", e.language)
	}
	return args
}

// execResult is the JSON shape the command may print.
type execResult struct {
	Text string `json:"text"`
}

// Recognize runs the command for one segment.
func (e *ExecRecognizer) Recognize(ctx context.Context, audioPath string) (string, error) {
	out, err := e.cmd.Run(ctx, e.argv[0], e.Args(audioPath))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("recognizer command failed: %w: %s", err, strings.TrimSpace(out.Stderr))
	}
	return decodeExecOutput(out.Stdout)
}

// decodeExecOutput accepts a JSON object with a text field, or raw text.
func decodeExecOutput(stdout string) (string, error) {
	trimmed := strings.TrimSpace(stdout)
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	var res execResult
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	if err := dec.Decode(&res); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	return strings.TrimSpace(res.Text), nil
}

// execLoader verifies the command resolves to an executable before the
// handle reports ready.
func execLoader(e *ExecRecognizer, lookPath func(string) (string, error)) Loader {
	return func(context.Context) (Recognizer, error) {
		if lookPath == nil {
			lookPath = exec.LookPath
		}
		if _, err := lookPath(e.Binary()); err != nil {
			return nil, fmt.Errorf("recognizer command %q: %w", e.Binary(), err)
		}
		return e, nil
	}
}
