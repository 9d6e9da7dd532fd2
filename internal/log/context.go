package log

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// WithContext returns ctx carrying logger.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	// Return default logger if not found
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// UnaryServerInterceptor puts logger, tagged with the called method, into
// every request context.
func UnaryServerInterceptor(logger *Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(WithContext(ctx, logger.With(FieldMethod, info.FullMethod)), req)
	}
}

// StructuredLogger provides domain-specific log events
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogCategoryOperation records the outcome of a category operation. Failures
// other than internal ones are caller mistakes and log at info.
func (sl *StructuredLogger) LogCategoryOperation(ctx context.Context, op, categoryID, outcome string, err error) {
	fields := NewFields().
		WithOperation(op).
		WithCategory(categoryID, "").
		WithOutcome(outcome).
		WithError(err).
		WithComponent(ComponentService)

	level := slog.LevelDebug
	switch {
	case outcome == "internal":
		level = slog.LevelError
	case outcome != OutcomeOK:
		level = slog.LevelInfo
	}
	sl.logger.Log(ctx, level, "Category operation", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
