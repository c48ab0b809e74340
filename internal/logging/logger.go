// Package logging writes structured records to stdout and to the
// OpenTelemetry log pipeline, tagged with the active trace.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

var logger *slog.Logger

// Init installs the process logger on stdout.
func Init(serviceName, environment string) {
	InitWithWriter(serviceName, environment, os.Stdout)
}

// InitWithWriter installs the process logger. The OpenTelemetry bridge uses
// the global logger provider, so telemetry must be set up first.
func InitWithWriter(serviceName, environment string, w io.Writer) {
	bridge := otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(global.GetLoggerProvider()))
	console := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelFor(environment)})

	logger = slog.New(fanout{bridge, console}).With(
		slog.String("service", serviceName),
		slog.String("environment", environment),
	)
	slog.SetDefault(logger)
}

func levelFor(environment string) slog.Level {
	if environment == "development" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func Logger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// traced adds the span and trace IDs carried by ctx, if any.
func traced(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return Logger()
	}
	return Logger().With(
		slog.String("traceId", sc.TraceID().String()),
		slog.String("spanId", sc.SpanID().String()),
	)
}

func Info(ctx context.Context, msg string, args ...any) {
	traced(ctx).InfoContext(ctx, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	traced(ctx).ErrorContext(ctx, msg, args...)
}

// fanout hands every record to each handler enabled for its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(f, func(h slog.Handler) bool {
		return h.Enabled(ctx, level)
	})
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}
