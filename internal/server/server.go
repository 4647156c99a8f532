// Package server exposes the transcription pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nhype/gigaam-inference/internal/audio"
	"github.com/nhype/gigaam-inference/internal/config"
	"github.com/nhype/gigaam-inference/internal/recognize"
	"github.com/nhype/gigaam-inference/internal/telemetry"
	"github.com/nhype/gigaam-inference/internal/transcribe"
)

// ErrTLSMissing indicates HTTPS was requested but the certificate or key is unreadable.
var ErrTLSMissing = errors.New("TLS certificate or key not found")

// Runner runs the pipeline for one input. *transcribe.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, in audio.Input) (transcribe.Result, error)
}

// Compile-time interface verification.
var _ Runner = (*transcribe.Pipeline)(nil)

// Server serves the HTTP API.
type Server struct {
	cfg       config.ServerConfig
	maxUpload int64
	tempDir   string

	runner  Runner
	handle  *recognize.Handle
	metrics http.Handler
	logger  *slog.Logger
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the version reported by GET /.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithUploadLimit sets the largest accepted upload in bytes.
func WithUploadLimit(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithTempDir sets where uploads are stored while they are processed.
func WithTempDir(dir string) Option {
	return func(s *Server) { s.tempDir = dir }
}

// New creates a Server. handle is consulted for health reporting; runner
// performs the transcription.
func New(cfg config.ServerConfig, runner Runner, handle *recognize.Handle, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		maxUpload: config.Default().Pipeline.MaxUploadBytes,
		runner:    runner,
		handle:    handle,
		logger:    telemetry.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(echoRequestID)
	r.Use(logging(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors(s.cfg.CORSOrigins))

	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Post("/transcribe", s.transcribe)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// ListenAndServe listens on the configured address and serves until ctx is
// done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if !s.cfg.DevMode {
		if err := checkTLSFiles(s.cfg.TLSCert, s.cfg.TLSKey); err != nil {
			return err
		}
	}
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. It serves HTTPS unless
// dev mode is enabled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		scheme := "https"
		if s.cfg.DevMode {
			scheme = "http"
		}
		s.logger.Info("starting server",
			slog.String("addr", ln.Addr().String()),
			slog.String("scheme", scheme),
			slog.String("model", s.handle.Model().String()))

		var err error
		if s.cfg.DevMode {
			err = srv.Serve(ln)
		} else {
			err = srv.ServeTLS(ln, s.cfg.TLSCert, s.cfg.TLSKey)
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server forced shutdown", slog.Any("error", err))
		_ = srv.Close()
		return err
	}
	if err := <-errCh; err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.cfg.ShutdownTimeout > 0 {
		return s.cfg.ShutdownTimeout
	}
	return 30 * time.Second
}

func checkTLSFiles(cert, key string) error {
	for _, p := range []string{cert, key} {
		if p == "" {
			return fmt.Errorf("%w: path not configured (set dev_mode for plain HTTP)", ErrTLSMissing)
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrTLSMissing, p, err)
		}
	}
	return nil
}
