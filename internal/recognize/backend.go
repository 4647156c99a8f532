package recognize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Backend names.
const (
	BackendExec   = "exec"
	BackendOpenAI = "openai"
	BackendMock   = "mock"
)

// DefaultMaxConcurrent is the process-wide number of recognizer slots.
const DefaultMaxConcurrent = 4

// Options selects and configures a backend.
type Options struct {
	Backend       string
	Model         Model
	Command       string // exec: command line, shell-quoted
	BaseURL       string // openai: endpoint base, e.g. http://localhost:8000/v1
	APIKey        string // openai: bearer token, may be empty for local servers
	Language      string
	MaxConcurrent int  // process-wide in-flight limit; < 1 disables the limit
	MaxRetries    int  // openai: retries for transient errors
	Serialize     bool // never overlap calls, regardless of MaxConcurrent
	MockDelay     time.Duration
}

// openAIClient is the part of *openai.Client a loaded backend uses.
type openAIClient interface {
	audioTranscriber
	modelLister
}

// loaderDeps are the seams NewLoader uses; tests replace them.
type loaderDeps struct {
	lookPath func(string) (string, error)
	runner   commandRunner
	client   openAIClient
}

// LoaderOption overrides a NewLoader dependency (for testing).
type LoaderOption func(*loaderDeps)

// NewLoader validates opts and returns a Loader that builds the configured
// backend, wrapped with the process-wide concurrency limit.
func NewLoader(opts Options, logger *slog.Logger, lopts ...LoaderOption) (Loader, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var deps loaderDeps
	for _, o := range lopts {
		o(&deps)
	}

	var base Loader
	switch strings.ToLower(opts.Backend) {
	case BackendExec:
		var execOpts []ExecOption
		if opts.Language != "" {
			execOpts = append(execOpts, WithExecLanguage(opts.Language))
		}
		if deps.runner != nil {
			execOpts = append(execOpts, WithExecRunner(deps.runner))
		}
		rec, err := NewExecRecognizer(opts.Command, opts.Model, execOpts...)
		if err != nil {
			return nil, err
		}
		base = execLoader(rec, deps.lookPath)

	case BackendOpenAI:
		if opts.BaseURL == "" && opts.APIKey == "" {
			return nil, fmt.Errorf("openai backend needs base_url or api_key")
		}
		var client openAIClient = NewOpenAIClient(opts.BaseURL, opts.APIKey)
		if deps.client != nil {
			client = deps.client
		}
		rec := NewOpenAIRecognizer(client, opts.Model,
			WithLanguage(opts.Language),
			WithMaxRetries(opts.MaxRetries),
			WithOpenAILogger(logger),
		)
		base = openAILoader(rec, client)

	case BackendMock:
		logger.Warn("mock recognizer selected; transcripts are placeholders")
		mock := &MockRecognizer{Delay: opts.MockDelay}
		base = func(context.Context) (Recognizer, error) { return mock, nil }

	default:
		return nil, fmt.Errorf("%w: %q (supported: %s, %s, %s)",
			ErrUnknownBackend, opts.Backend, BackendExec, BackendOpenAI, BackendMock)
	}

	return func(ctx context.Context) (Recognizer, error) {
		start := time.Now()
		logger.Info("loading recognizer",
			slog.String("backend", opts.Backend),
			slog.String("model", string(opts.Model)))

		rec, err := base(ctx)
		if err != nil {
			logger.Error("recognizer failed to load",
				slog.String("model", string(opts.Model)),
				slog.Any("error", err))
			return nil, err
		}

		if opts.Serialize {
			rec = Serialize(rec)
		} else {
			rec = Limit(rec, opts.MaxConcurrent)
		}
		logger.Info("recognizer loaded",
			slog.String("model", string(opts.Model)),
			slog.Int("slots", slots(opts)),
			slog.Duration("elapsed", time.Since(start)))
		return rec, nil
	}, nil
}

func slots(opts Options) int {
	if opts.Serialize {
		return 1
	}
	return opts.MaxConcurrent
}
