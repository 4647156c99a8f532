package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/nhype/gigaam-inference/internal/config"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	config      *mockConfigLoader
	ffmpeg      *mockFFmpegResolver
	recognizers *mockRecognizerFactory
	pipelines   *mockPipelineFactory
	telemetry   *mockTelemetryFactory
	stdout      *syncBuffer
	stderr      *syncBuffer
}

// testEnv creates an Env with every dependency mocked. cfg is what the
// config loader returns.
func testEnv(t *testing.T, cfg config.Config) (*Env, *testMocks) {
	t.Helper()

	m := &testMocks{
		config: &mockConfigLoader{
			LoadFunc: func(string) (config.Config, error) { return cfg, nil },
			path:     filepath.Join(t.TempDir(), "config.yaml"),
		},
		ffmpeg:      &mockFFmpegResolver{},
		recognizers: newMockRecognizerFactory(),
		pipelines:   &mockPipelineFactory{},
		telemetry:   &mockTelemetryFactory{},
		stdout:      &syncBuffer{},
		stderr:      &syncBuffer{},
	}

	env := &Env{
		Stdout:            m.stdout,
		Stderr:            m.stderr,
		Version:           "v0.0.0-test",
		ConfigLoader:      m.config,
		FFmpegResolver:    m.ffmpeg,
		RecognizerFactory: m.recognizers,
		PipelineFactory:   m.pipelines,
		TelemetryFactory:  m.telemetry,
	}
	return env, m
}

// testConfig returns defaults suited to tests: mock backend, plain HTTP on
// an ephemeral loopback port, workspaces under a test directory.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.DevMode = true
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Pipeline.TempDir = t.TempDir()
	cfg.Telemetry.LogFormat = "text"
	cfg.Model.Backend = "mock"
	return cfg
}

// createCmd creates a cobra.Command carrying ctx, as run* functions expect.
func createCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	return cmd
}

// createTestAudioFile creates a small non-empty file named name.
func createTestAudioFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("fake audio content"), 0644); err != nil {
		t.Fatalf("failed to create test audio file: %v", err)
	}
	return path
}

// assertEmptyDir fails if dir has entries left.
func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s): %v", dir, err)
	}
	if len(entries) != 0 {
		t.Errorf("%s has %d leftover entries", dir, len(entries))
	}
}
