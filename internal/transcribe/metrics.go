package transcribe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nhype/gigaam-inference/internal/recognize"
)

const instrumentationName = "github.com/nhype/gigaam-inference/internal/transcribe"

// instruments holds the pipeline's metric instruments. Creation errors
// leave the corresponding field nil and recording is skipped.
type instruments struct {
	runs       metric.Int64Counter
	runTime    metric.Float64Histogram
	audioTime  metric.Float64Histogram
	segments   metric.Int64Histogram
	recognizer metric.Float64Histogram
}

func newInstruments(mp metric.MeterProvider) instruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	var ins instruments
	ins.runs, _ = meter.Int64Counter("gigaam.transcriptions",
		metric.WithDescription("Transcription requests by outcome"))
	ins.runTime, _ = meter.Float64Histogram("gigaam.transcription.duration",
		metric.WithDescription("Wall time of one transcription request"), metric.WithUnit("s"))
	ins.audioTime, _ = meter.Float64Histogram("gigaam.audio.duration",
		metric.WithDescription("Probed duration of uploaded audio"), metric.WithUnit("s"))
	ins.segments, _ = meter.Int64Histogram("gigaam.segments",
		metric.WithDescription("Segments per transcription request"))
	ins.recognizer, _ = meter.Float64Histogram("gigaam.recognize.duration",
		metric.WithDescription("Wall time of one recognizer call"), metric.WithUnit("s"))
	return ins
}

func (ins instruments) recordRun(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if ins.runs != nil {
		ins.runs.Add(ctx, 1, attrs)
	}
	if ins.runTime != nil {
		ins.runTime.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func (ins instruments) recordAudio(ctx context.Context, d time.Duration, segments int) {
	if ins.audioTime != nil {
		ins.audioTime.Record(ctx, d.Seconds())
	}
	if ins.segments != nil {
		ins.segments.Record(ctx, int64(segments))
	}
}

// tracedRecognizer wraps each recognizer call in a span and records its latency.
type tracedRecognizer struct {
	next   recognize.Recognizer
	tracer trace.Tracer
	hist   metric.Float64Histogram
}

func (t *tracedRecognizer) Recognize(ctx context.Context, audioPath string) (string, error) {
	ctx, span := t.tracer.Start(ctx, "recognize")
	defer span.End()

	start := time.Now()
	text, err := t.next.Recognize(ctx, audioPath)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
	}
	if t.hist != nil {
		t.hist.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	span.SetAttributes(attribute.Int("text.length", len(text)))
	return text, err
}
