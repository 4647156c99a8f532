package recognize_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nhype/gigaam-inference/internal/recognize"
)

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := map[recognize.State]string{
		recognize.StateLoading: "loading",
		recognize.StateReady:   "loaded",
		recognize.StateFailed:  "error",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestHandleLoading(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	h := recognize.NewHandle(recognize.ModelV2CTC, func(ctx context.Context) (recognize.Recognizer, error) {
		<-release
		return &recognize.MockRecognizer{}, nil
	})

	if got := h.State(); got != recognize.StateLoading {
		t.Fatalf("State() before Load = %v, want loading", got)
	}

	loaded := make(chan error, 1)
	go func() { loaded <- h.Load(context.Background()) }()

	_, err := h.Recognizer()
	if !errors.Is(err, recognize.ErrModelNotReady) {
		t.Fatalf("Recognizer() while loading error = %v, want ErrModelNotReady", err)
	}

	close(release)
	if err := <-loaded; err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	<-h.Done()

	if got := h.State(); got != recognize.StateReady {
		t.Errorf("State() after Load = %v, want loaded", got)
	}
	rec, err := h.Recognizer()
	if err != nil || rec == nil {
		t.Fatalf("Recognizer() after Load = %v, %v", rec, err)
	}
}

func TestHandleLoadRunsOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	h := recognize.NewHandle(recognize.ModelV2CTC, func(context.Context) (recognize.Recognizer, error) {
		calls.Add(1)
		return &recognize.MockRecognizer{}, nil
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.Load(context.Background()); err != nil {
				t.Errorf("Load() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
}

func TestHandleFailedLoad(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("weights missing")
	h := recognize.NewHandle(recognize.ModelV2RNNT, func(context.Context) (recognize.Recognizer, error) {
		return nil, errBoom
	})

	if err := h.Load(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("Load() error = %v, want %v", err, errBoom)
	}
	if got := h.State(); got != recognize.StateFailed {
		t.Errorf("State() = %v, want error", got)
	}
	_, err := h.Recognizer()
	if !errors.Is(err, recognize.ErrModelNotReady) {
		t.Errorf("Recognizer() error = %v, want ErrModelNotReady", err)
	}
	// A second Load reports the same outcome without retrying.
	if err := h.Load(context.Background()); !errors.Is(err, errBoom) {
		t.Errorf("second Load() error = %v, want %v", err, errBoom)
	}
}

func TestHandleNilRecognizerFails(t *testing.T) {
	t.Parallel()

	h := recognize.NewHandle(recognize.ModelCTC, func(context.Context) (recognize.Recognizer, error) {
		return nil, nil
	})
	if err := h.Load(context.Background()); err == nil {
		t.Fatal("Load() with nil recognizer succeeded, want error")
	}
	if got := h.State(); got != recognize.StateFailed {
		t.Errorf("State() = %v, want error", got)
	}
}

func TestReady(t *testing.T) {
	t.Parallel()

	h := recognize.Ready(recognize.ModelV1CTC, &recognize.MockRecognizer{})
	if got := h.State(); got != recognize.StateReady {
		t.Fatalf("State() = %v, want loaded", got)
	}
	if got := h.Model(); got != recognize.ModelV1CTC {
		t.Errorf("Model() = %q, want %q", got, recognize.ModelV1CTC)
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done() not closed on a ready handle")
	}
}
