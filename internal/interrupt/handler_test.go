package interrupt_test

// Notes:
// - All tests inject a signal channel via NewHandlerWithOptions; only
//   TestNewHandler installs a real listener.
// - ctx.Done() confirms the first signal was processed before sending the second.

import (
	"bytes"
	"context"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/nhype/gigaam-inference/internal/interrupt"
)

// syncBuffer is a thread-safe bytes.Buffer; the handler writes from its own goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Contains(substr string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Contains(b.buf.Bytes(), []byte(substr))
}

// exitRecorder captures the exit code instead of exiting.
type exitRecorder struct {
	code   atomic.Int32
	called chan struct{}
}

func newExitRecorder() *exitRecorder {
	r := &exitRecorder{called: make(chan struct{})}
	r.code.Store(-1)
	return r
}

func (r *exitRecorder) Exit(code int) {
	r.code.Store(int32(code))
	close(r.called)
}

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled after signal")
	}
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewHandler(t *testing.T) {
	t.Parallel()

	h, ctx := interrupt.NewHandler(context.Background())
	defer h.Stop()

	select {
	case <-ctx.Done():
		t.Fatal("context canceled before any signal")
	default:
	}
	if h.Interrupted() {
		t.Error("Interrupted() = true before any signal")
	}
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

func TestHandler_FirstSignalCancels(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal, 2)
	stderr := &syncBuffer{}
	exit := newExitRecorder()
	h, ctx := interrupt.NewHandlerWithOptions(context.Background(), interrupt.Options{
		SigCh:    sigCh,
		ExitFunc: exit.Exit,
		Stderr:   stderr,
	})
	defer h.Stop()

	sigCh <- syscall.SIGTERM
	waitDone(t, ctx)

	if !h.Interrupted() {
		t.Error("Interrupted() = false after a signal")
	}
	if !stderr.Contains("Shutting down") {
		t.Error("drain message not written")
	}
	select {
	case <-exit.called:
		t.Error("exit called on first signal")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHandler_SecondSignalForcesExit(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal, 2)
	stderr := &syncBuffer{}
	exit := newExitRecorder()
	h, ctx := interrupt.NewHandlerWithOptions(context.Background(), interrupt.Options{
		SigCh:    sigCh,
		ExitFunc: exit.Exit,
		Stderr:   stderr,
	})
	defer h.Stop()

	sigCh <- syscall.SIGINT
	waitDone(t, ctx)
	sigCh <- syscall.SIGINT

	select {
	case <-exit.called:
	case <-time.After(2 * time.Second):
		t.Fatal("exit not called on second signal")
	}
	if got := exit.code.Load(); got != interrupt.ExitInterrupt {
		t.Errorf("exit code = %d, want %d", got, interrupt.ExitInterrupt)
	}
	if !stderr.Contains("Forced exit") {
		t.Error("force message not written")
	}
}

func TestHandler_ParentCancellation(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	h, ctx := interrupt.NewHandlerWithOptions(parent, interrupt.Options{SigCh: make(chan os.Signal)})
	defer h.Stop()

	cancel()
	waitDone(t, ctx)
	if h.Interrupted() {
		t.Error("Interrupted() = true without a signal")
	}
}

// ---------------------------------------------------------------------------
// Stop
// ---------------------------------------------------------------------------

func TestHandler_StopIgnoresLaterSignals(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal, 2)
	exit := newExitRecorder()
	h, ctx := interrupt.NewHandlerWithOptions(context.Background(), interrupt.Options{
		SigCh:    sigCh,
		ExitFunc: exit.Exit,
		Stderr:   &syncBuffer{},
	})

	h.Stop()
	h.Stop()
	waitDone(t, ctx)

	sigCh <- syscall.SIGINT
	sigCh <- syscall.SIGINT
	select {
	case <-exit.called:
		t.Error("exit called after Stop")
	case <-time.After(50 * time.Millisecond):
	}
	if h.Interrupted() {
		t.Error("Interrupted() = true for signals sent after Stop")
	}
}

func TestHandler_ClosedChannel(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal)
	h, ctx := interrupt.NewHandlerWithOptions(context.Background(), interrupt.Options{SigCh: sigCh})
	close(sigCh)
	defer h.Stop()

	select {
	case <-ctx.Done():
		t.Error("closing the signal channel must not cancel the context")
	case <-time.After(20 * time.Millisecond):
	}
}
