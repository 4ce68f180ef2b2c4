package logger

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is the global zap.Logger instance.
var logger *zap.Logger

const (
	TraceIDKey = "traceid" // Key for trace ID in logs
	SpanIDKey  = "spanid"  // Key for span ID in logs
)

type ctxKey string

const (
	ctxTraceID ctxKey = "traceid" // Context key for trace ID
	ctxSpanID  ctxKey = "spanid"  // Context key for span ID
)

// Setup initializes the global logger with production JSON output.
func Setup() error {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.LevelKey = "severity"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	var err error
	logger, err = cfg.Build()
	if err != nil {
		return err
	}
	return nil
}

// L returns the global logger, falling back to a nop logger before Setup.
func L() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// WithTraceID returns a new context carrying the given trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxTraceID, traceID)
}

// WithSpanID returns a new context carrying the given span ID.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, ctxSpanID, spanID)
}

// TraceIDFromContext extracts the trace ID from context or OpenTelemetry span.
func TraceIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxTraceID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			return sc.TraceID().String()
		}
	}
	return ""
}

// SpanIDFromContext extracts the span ID from context or OpenTelemetry span.
func SpanIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxSpanID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			return sc.SpanID().String()
		}
	}
	return ""
}

func ctxFields(ctx context.Context, fields []zap.Field) []zap.Field {
	return append(fields,
		zap.String(TraceIDKey, TraceIDFromContext(ctx)),
		zap.String(SpanIDKey, SpanIDFromContext(ctx)),
	)
}

// InfoCtx logs an info message with trace and span IDs from context.
func InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	L().Info(msg, ctxFields(ctx, fields)...)
}

// WarnCtx logs a warning message with trace and span IDs from context.
func WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	L().Warn(msg, ctxFields(ctx, fields)...)
}

// ErrorCtx logs an error message with trace and span IDs from context.
func ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	L().Error(msg, ctxFields(ctx, fields)...)
}

// Info logs an info message (without context).
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Warn logs a warning message (without context).
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error logs an error message (without context).
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// Fatal logs an error message and exits the process.
func Fatal(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
	os.Exit(1)
}
