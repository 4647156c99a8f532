package recognize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nhype/gigaam-inference/internal/apierr"
)

// Default retry delays. Retries are off unless configured.
const (
	defaultBaseDelay = 1 * time.Second
	defaultMaxDelay  = 30 * time.Second
)

// audioTranscriber is the subset of *openai.Client used for recognition.
// This allows injecting mocks in tests.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// modelLister is the subset of *openai.Client used to check reachability.
type modelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// Compile-time interface compliance checks.
var (
	_ Recognizer       = (*OpenAIRecognizer)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
	_ modelLister      = (*openai.Client)(nil)
)

// OpenAIRecognizer sends each segment to an OpenAI-compatible
// /v1/audio/transcriptions endpoint, such as a model server hosting the
// checkpoint behind that API.
type OpenAIRecognizer struct {
	client     audioTranscriber
	model      Model
	language   string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
}

// OpenAIOption configures an OpenAIRecognizer.
type OpenAIOption func(*OpenAIRecognizer)

// WithMaxRetries sets the maximum number of retry attempts for transient errors.
func WithMaxRetries(n int) OpenAIOption {
	return func(r *OpenAIRecognizer) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, maxDelay time.Duration) OpenAIOption {
	return func(r *OpenAIRecognizer) {
		if base > 0 {
			r.baseDelay = base
		}
		if maxDelay > 0 {
			r.maxDelay = maxDelay
		}
	}
}

// WithLanguage sets the ISO 639-1 language hint.
func WithLanguage(code string) OpenAIOption {
	return func(r *OpenAIRecognizer) { r.language = code }
}

// WithOpenAILogger sets the logger used to report retries.
func WithOpenAILogger(l *slog.Logger) OpenAIOption {
	return func(r *OpenAIRecognizer) { r.logger = l }
}

// NewOpenAIRecognizer creates a recognizer around an existing client.
func NewOpenAIRecognizer(client audioTranscriber, model Model, opts ...OpenAIOption) *OpenAIRecognizer {
	r := &OpenAIRecognizer{
		client:    client,
		model:     model,
		baseDelay: defaultBaseDelay,
		maxDelay:  defaultMaxDelay,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewOpenAIClient builds a go-openai client for baseURL. An empty baseURL
// keeps the library default.
func NewOpenAIClient(baseURL, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// Recognize uploads one segment and returns its text.
func (r *OpenAIRecognizer) Recognize(ctx context.Context, audioPath string) (string, error) {
	req := openai.AudioRequest{
		Model:    string(r.model),
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatJSON,
		Language: r.language,
	}

	b := apierr.Backoff{
		Retries: r.maxRetries,
		Base:    r.baseDelay,
		Max:     r.maxDelay,
		OnRetry: func(retry int, err error) {
			r.logger.Warn("retrying recognition",
				slog.Int("retry", retry),
				slog.String("path", audioPath),
				slog.Any("error", err))
		},
	}

	return apierr.Retry(ctx, b, func(ctx context.Context) (string, error) {
		resp, err := r.client.CreateTranscription(ctx, req)
		if err != nil {
			return "", classifyError(err)
		}
		return resp.Text, nil
	})
}

// classifyError maps go-openai errors to apierr sentinels.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apierr.Classify(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return apierr.Classify(reqErr.HTTPStatusCode, reqErr.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	return err
}

// openAILoader checks the endpoint answers before the handle reports ready.
func openAILoader(rec *OpenAIRecognizer, lister modelLister) Loader {
	return func(ctx context.Context) (Recognizer, error) {
		if lister != nil {
			if _, err := lister.ListModels(ctx); err != nil {
				return nil, fmt.Errorf("recognizer endpoint unreachable: %w", classifyError(err))
			}
		}
		return rec, nil
	}
}
