// Package telemetry wires OpenTelemetry tracing, Prometheus metrics and
// structured logging for the service.
package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nhype/gigaam-inference/internal/config"
)

// Providers carries what Setup built. Fields are never nil.
type Providers struct {
	Tracer  trace.TracerProvider
	Meter   metric.MeterProvider
	Metrics http.Handler // nil when metrics are disabled

	shutdown []func(context.Context) error
}

// Shutdown flushes and stops exporters.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Setup builds trace and meter providers from cfg and installs them as the
// otel globals. Traces go to OTLP when an endpoint is set, to stdout when
// requested (pretty-printed to stdout), and nowhere otherwise.
func Setup(ctx context.Context, service, version string, cfg config.TelemetryConfig, stdout io.Writer, logger *slog.Logger) (*Providers, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(service),
			semconv.ServiceVersion(version),
			attribute.String("service.component", "inference"),
		),
	)
	if err != nil {
		return nil, err
	}

	p := &Providers{}

	tp, err := initTracer(ctx, cfg, res, stdout, logger)
	if err != nil {
		return nil, err
	}
	if tp != nil {
		p.Tracer = tp
		p.shutdown = append(p.shutdown, tp.Shutdown)
	} else {
		p.Tracer = noop.NewTracerProvider()
	}
	otel.SetTracerProvider(p.Tracer)

	mp, handler, err := initMetrics(cfg, res)
	if err != nil {
		// Metrics are optional; keep serving without them.
		logger.Warn("failed to initialize prometheus exporter", slog.Any("error", err))
		mp = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
		handler = nil
	}
	p.Meter = mp
	p.Metrics = handler
	p.shutdown = append(p.shutdown, mp.Shutdown)
	otel.SetMeterProvider(mp)

	return p, nil
}

func initTracer(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource, stdout io.Writer, logger *slog.Logger) (*sdktrace.TracerProvider, error) {
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		logger.Info("telemetry initialized", slog.String("exporter", "otlp"), slog.String("endpoint", endpoint))
		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		), nil
	}

	if cfg.StdoutTraces {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(stdout), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		logger.Info("telemetry initialized", slog.String("exporter", "stdout"))
		return sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
			sdktrace.WithResource(res),
		), nil
	}

	return nil, nil
}

// initMetrics exports through a private registry so repeated setup (tests,
// CLI reruns) never collides with the default one.
func initMetrics(cfg config.TelemetryConfig, res *resource.Resource) (*sdkmetric.MeterProvider, http.Handler, error) {
	if !cfg.MetricsEnabled {
		return sdkmetric.NewMeterProvider(sdkmetric.WithResource(res)), nil, nil
	}

	reg := promclient.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	return mp, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), nil
}
