// Package interrupt turns SIGINT and SIGTERM into context cancellation.
// The first signal cancels the context so the server can drain in-flight
// requests; a second one exits immediately.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ExitInterrupt is the exit code for a forced exit (130 = 128 + SIGINT).
const ExitInterrupt = 130

const (
	drainMessage = "\nShutting down, waiting for running transcriptions (interrupt again to force)..."
	forceMessage = "\nForced exit."
)

// Handler cancels a context on the first signal and forces exit on the second.
type Handler struct {
	mu      sync.Mutex
	signals int
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	exitFunc func(int)
	stderr   io.Writer
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh    <-chan os.Signal
	ExitFunc func(int)
	// Stderr receives the user-facing messages. Must tolerate concurrent writes.
	Stderr io.Writer
}

// NewHandler listens for SIGINT and SIGTERM. The returned context is
// canceled on the first signal.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return NewHandlerWithOptions(parent, Options{SigCh: sigCh})
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	h := &Handler{
		cancel:   cancel,
		done:     make(chan struct{}),
		exitFunc: opts.ExitFunc,
		stderr:   opts.Stderr,
	}
	if h.exitFunc == nil {
		h.exitFunc = os.Exit
	}
	if h.stderr == nil {
		h.stderr = os.Stderr
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}
	return h, ctx
}

func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}
			if !h.handle() {
				return
			}
		}
	}
}

// handle processes one signal and reports whether to keep listening.
func (h *Handler) handle() bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}
	h.signals++
	n := h.signals
	h.mu.Unlock()

	if n == 1 {
		_, _ = fmt.Fprintln(h.stderr, drainMessage)
		h.cancel()
		return true
	}
	_, _ = fmt.Fprintln(h.stderr, forceMessage)
	h.exitFunc(ExitInterrupt)
	return false
}

// Interrupted reports whether at least one signal was received.
func (h *Handler) Interrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.signals > 0
}

// Stop stops listening and releases the context. Safe to call twice.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	close(h.done)
	h.cancel()
}
