package transcribe_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/nhype/gigaam-inference/internal/audio"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// mockProber returns a fixed duration or error.
type mockProber struct {
	mu    sync.Mutex
	d     time.Duration
	err   error
	calls int
}

func (m *mockProber) Probe(_ context.Context, _ string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.d, m.err
}

func (m *mockProber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSegmenter materializes one small file per span inside the workspace,
// named like the real segmenter's output.
type mockSegmenter struct {
	mu    sync.Mutex
	err   error
	plans []audio.ChunkPlan
	dirs  []string
	short bool // drop the last segment
}

func (m *mockSegmenter) Split(_ context.Context, ws *audio.Workspace, _ audio.Input, plan audio.ChunkPlan) ([]audio.Segment, error) {
	m.mu.Lock()
	m.plans = append(m.plans, plan)
	m.dirs = append(m.dirs, ws.Dir())
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	spans := plan.Spans
	if m.short {
		spans = spans[:len(spans)-1]
	}
	segments := make([]audio.Segment, 0, len(spans))
	for _, sp := range spans {
		name := fmt.Sprintf("segment_%03d.wav", sp.Index)
		f, err := ws.Create(name)
		if err != nil {
			return nil, err
		}
		_, _ = f.WriteString("RIFF")
		_ = f.Close()
		segments = append(segments, audio.Segment{Path: ws.Path(name), Index: sp.Index, Start: sp.Start, End: sp.End})
	}
	return segments, nil
}

func (m *mockSegmenter) Plans() []audio.ChunkPlan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audio.ChunkPlan(nil), m.plans...)
}

// scriptedRecognizer answers by file base name.
type scriptedRecognizer struct {
	texts  map[string]string
	errs   map[string]error
	delays map[string]time.Duration

	mu    sync.Mutex
	calls []string
}

func (s *scriptedRecognizer) Recognize(ctx context.Context, audioPath string) (string, error) {
	name := filepath.Base(audioPath)
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()

	if d := s.delays[name]; d > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(d):
		}
	}
	if err := s.errs[name]; err != nil {
		return "", err
	}
	if text, ok := s.texts[name]; ok {
		return text, nil
	}
	return "", errors.New("unexpected segment " + name)
}

func (s *scriptedRecognizer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
