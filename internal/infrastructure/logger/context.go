package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Request-scoped logger plumbing. The access-log middleware attaches a
// request logger to the request context; the auth middleware re-derives
// child loggers tagged with the authenticated agency and user so every
// line downstream carries the tenant.

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	agencyIDKey  contextKey = "agency_id"
	userIDKey    contextKey = "user_id"
)

// WithContext returns a new context carrying the given logger
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves the request logger, or a no-op logger when the
// context never passed through the access-log middleware
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID and returns a child logger tagged with it
func WithRequestID(ctx context.Context, l *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	child := l.With(zap.String("request_id", requestID))
	return WithContext(ctx, child), child
}

// WithAgencyID stores the tenant ID and returns a child logger tagged with it
func WithAgencyID(ctx context.Context, l *zap.Logger, agencyID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, agencyIDKey, agencyID)
	child := l.With(zap.String("agency_id", agencyID))
	return WithContext(ctx, child), child
}

// WithUserID stores the user ID and returns a child logger tagged with it
func WithUserID(ctx context.Context, l *zap.Logger, userID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, userIDKey, userID)
	child := l.With(zap.String("user_id", userID))
	return WithContext(ctx, child), child
}

// GetRequestID retrieves the request ID from context, empty when absent
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetAgencyID retrieves the tenant ID from context, empty when absent
func GetAgencyID(ctx context.Context) string {
	id, _ := ctx.Value(agencyIDKey).(string)
	return id
}

// GetUserID retrieves the user ID from context, empty when absent
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithTraceContext tags the logger with the active span's trace_id and
// span_id so log lines can be correlated with traces. Without a recording
// span the logger is returned unchanged.
func WithTraceContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}
