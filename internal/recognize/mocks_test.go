package recognize_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nhype/gigaam-inference/internal/ffmpeg"
)

// mockRunner records command invocations and returns canned output.
type mockRunner struct {
	mu     sync.Mutex
	calls  [][]string
	stdout string
	stderr string
	err    error
}

func (m *mockRunner) Run(_ context.Context, name string, args []string) (ffmpeg.Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string{name}, args...))
	return ffmpeg.Output{Stdout: m.stdout, Stderr: m.stderr}, m.err
}

func (m *mockRunner) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}

// mockClient is a scripted OpenAI-compatible endpoint. Each call to
// CreateTranscription consumes the next entry of errs; once errs is
// exhausted it returns text.
type mockClient struct {
	mu       sync.Mutex
	errs     []error
	text     string
	requests []openai.AudioRequest
	listErr  error
	listed   atomic.Int32
}

func (m *mockClient) CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return openai.AudioResponse{}, err
	}
	m.requests = append(m.requests, req)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return openai.AudioResponse{}, err
	}
	return openai.AudioResponse{Text: m.text}, nil
}

func (m *mockClient) ListModels(context.Context) (openai.ModelsList, error) {
	m.listed.Add(1)
	return openai.ModelsList{}, m.listErr
}

func (m *mockClient) Requests() []openai.AudioRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]openai.AudioRequest(nil), m.requests...)
}

// gaugeRecognizer tracks how many calls overlap.
type gaugeRecognizer struct {
	delay   time.Duration
	current atomic.Int32
	peak    atomic.Int32
	total   atomic.Int32
}

func (g *gaugeRecognizer) Recognize(ctx context.Context, _ string) (string, error) {
	n := g.current.Add(1)
	defer g.current.Add(-1)
	g.total.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(g.delay):
	}
	return "ok", nil
}
