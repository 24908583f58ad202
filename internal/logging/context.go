package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldPrinter is the key for the printer display name an event refers to.
	FieldPrinter = "printer"
	// FieldSource identifies the ingestion path (push, stream, poll, test).
	FieldSource = "source"
	// FieldStatus carries a raw printer status string.
	FieldStatus = "status"
	// FieldCompletion carries the job completion percentage.
	FieldCompletion = "completion"
	// FieldCorrelationID is the standardized key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType is a stable machine-readable name for the logged occurrence.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names the decision being logged.
	FieldDecisionType = "decision_type"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	sourceKey    contextKey = "source"
)

// WithRequestID annotates ctx with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSource annotates ctx with the ingestion source name.
func WithSource(ctx context.Context, source string) context.Context {
	if source == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext returns the ingestion source if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(sourceKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if source, ok := SourceFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSource, source))
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
