package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhype/gigaam-inference/internal/server"
	"github.com/nhype/gigaam-inference/internal/telemetry"
	"github.com/nhype/gigaam-inference/internal/transcribe"
)

// telemetryFlushTimeout bounds exporter flushing on exit.
const telemetryFlushTimeout = 5 * time.Second

type serveOptions struct {
	dev  bool
	host string
	port int
}

// ServeCmd creates the serve command.
// The env parameter provides injectable dependencies for testing.
func ServeCmd(env *Env) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP transcription service",
		Long: `Run the HTTP transcription service.

The listener starts immediately; the model loads in the background.
Until it is ready, GET /health reports "starting" and POST /transcribe
answers 503. If loading fails the service keeps running and reports
"unhealthy".

HTTPS is served with server.tls_cert and server.tls_key unless dev mode
is enabled (--dev or DEV_MODE=true), which serves plain HTTP.`,
		Example: `  gigaam-inference serve
  gigaam-inference serve --dev --port 8000
  gigaam-inference serve --config /etc/gigaam/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, env, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dev, "dev", false, "Serve plain HTTP (no certificates needed)")
	cmd.Flags().StringVar(&opts.host, "host", "", "Listen address (overrides server.host)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "Listen port (overrides server.port)")

	return cmd
}

// runServe wires configuration, telemetry, the model handle and the pipeline
// into the HTTP server and blocks until the context is canceled.
func runServe(cmd *cobra.Command, env *Env, opts serveOptions) error {
	ctx := cmd.Context()

	cfg, err := env.ConfigLoader.Load(env.ConfigPath)
	if err != nil {
		return err
	}
	if opts.dev {
		cfg.Server.DevMode = true
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}

	logger := telemetry.NewLogger(env.Stderr, cfg.Telemetry.LogLevel, cfg.Telemetry.LogFormat).
		With(slog.String("service", cfg.ServiceName))

	providers, err := env.TelemetryFactory.Setup(ctx, cfg.ServiceName, env.Version, cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := providers.Shutdown(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	st, err := buildStack(ctx, env, cfg, logger,
		transcribe.WithTracerProvider(providers.Tracer),
		transcribe.WithMeterProvider(providers.Meter),
		transcribe.WithStateHook(func(jobID string, s transcribe.State) {
			logger.Debug("job state", slog.String("job_id", jobID), slog.String("state", s.String()))
		}),
	)
	if err != nil {
		return err
	}

	// Load off the accept loop. The loader logs its own outcome; the handle
	// keeps the error for /health.
	go func() { _ = st.handle.Load(ctx) }()

	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithVersion(env.Version),
		server.WithUploadLimit(cfg.Pipeline.MaxUploadBytes),
		server.WithTempDir(cfg.Pipeline.TempDir),
	}
	if providers.Metrics != nil {
		srvOpts = append(srvOpts, server.WithMetricsHandler(providers.Metrics))
	}
	srv := server.New(cfg.Server, st.runner, st.handle, srvOpts...)

	logger.Info("service configured",
		slog.String("addr", cfg.Server.Addr()),
		slog.Bool("dev_mode", cfg.Server.DevMode),
		slog.String("model", st.handle.Model().String()),
		slog.String("backend", cfg.Model.Backend),
		slog.Duration("max_segment", cfg.Pipeline.MaxSegment()),
		slog.Int("segment_parallel", clampParallel(cfg.Pipeline.SegmentParallel)))

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		return err
	}
	return nil
}
