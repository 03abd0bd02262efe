package utils

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InitTracing installs a global tracer provider whose finished spans are
// written to the logger at debug level. The returned func flushes and stops it.
func InitTracing(logger *logrus.Logger) func(context.Context) error {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(&logExporter{logger: logger}),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown
}

// logExporter is a span exporter backed by logrus
type logExporter struct {
	logger *logrus.Logger
}

func (e *logExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	if !e.logger.IsLevelEnabled(logrus.DebugLevel) {
		return nil
	}
	for _, span := range spans {
		fields := logrus.Fields{
			"span":        span.Name(),
			"trace_id":    span.SpanContext().TraceID().String(),
			"duration_ms": span.EndTime().Sub(span.StartTime()).Milliseconds(),
		}
		for _, attr := range span.Attributes() {
			fields[string(attr.Key)] = attr.Value.Emit()
		}
		if status := span.Status(); status.Description != "" {
			fields["status"] = status.Description
		}
		e.logger.WithFields(fields).Debug("Span finished")
	}
	return nil
}

func (e *logExporter) Shutdown(context.Context) error {
	return nil
}
