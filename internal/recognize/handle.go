package recognize

import (
	"context"
	"fmt"
	"sync"
)

// State is the load state of a Handle.
type State int

// Handle states. A handle starts in StateLoading and moves exactly once to
// StateReady or StateFailed.
const (
	StateLoading State = iota
	StateReady
	StateFailed
)

// String returns the value reported as model_status on the health endpoint.
func (s State) String() string {
	switch s {
	case StateReady:
		return "loaded"
	case StateFailed:
		return "error"
	default:
		return "loading"
	}
}

// Loader builds a ready-to-use Recognizer. It may block for as long as the
// backend needs to become usable.
type Loader func(ctx context.Context) (Recognizer, error)

// Handle owns the process-wide recognizer and tracks whether it is usable.
// It is created before the server starts accepting requests and loaded off
// the accept loop; requests consult it rather than a global.
type Handle struct {
	model Model
	load  Loader

	once sync.Once
	done chan struct{}

	mu    sync.RWMutex
	state State
	rec   Recognizer
	err   error
}

// NewHandle creates a Handle in StateLoading.
func NewHandle(model Model, load Loader) *Handle {
	return &Handle{
		model: model,
		load:  load,
		done:  make(chan struct{}),
	}
}

// Ready returns a Handle that is already loaded with r. Useful for the CLI
// and tests, where there is no startup window to expose.
func Ready(model Model, r Recognizer) *Handle {
	h := NewHandle(model, func(context.Context) (Recognizer, error) { return r, nil })
	_ = h.Load(context.Background())
	return h
}

// Load runs the loader once. Concurrent and later calls wait for the first
// to finish and return its outcome.
func (h *Handle) Load(ctx context.Context) error {
	h.once.Do(func() {
		defer close(h.done)

		rec, err := h.load(ctx)

		h.mu.Lock()
		defer h.mu.Unlock()
		if err != nil {
			h.state = StateFailed
			h.err = err
			return
		}
		if rec == nil {
			h.state = StateFailed
			h.err = fmt.Errorf("loader for %s returned no recognizer", h.model)
			return
		}
		h.state = StateReady
		h.rec = rec
	})

	<-h.done
	return h.Err()
}

// Done is closed once loading has finished, successfully or not.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Model returns the model identifier this handle serves.
func (h *Handle) Model() Model {
	return h.model
}

// State returns the current load state.
func (h *Handle) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Err returns the load error, if loading failed.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Recognizer returns the loaded recognizer, or an error wrapping
// ErrModelNotReady while loading or after a failed load.
func (h *Handle) Recognizer() (Recognizer, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	switch h.state {
	case StateReady:
		return h.rec, nil
	case StateFailed:
		return nil, fmt.Errorf("%w: %s failed to load: %v", ErrModelNotReady, h.model, h.err)
	default:
		return nil, fmt.Errorf("%w: %s is still loading", ErrModelNotReady, h.model)
	}
}
