package logging

import (
	"context"
	"log/slog"
)

// fanoutHandler forwards each record to every wrapped handler that accepts its level.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	var filtered []slog.Handler
	for _, h := range handlers {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	switch len(filtered) {
	case 0:
		return NoopHandler{}
	case 1:
		return filtered[0]
	default:
		return &fanoutHandler{handlers: filtered}
	}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// TeeLogger duplicates log output from base into the provided handlers. The
// daemon uses it to mirror console output into a JSON debug log.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	if base == nil {
		return slog.New(newFanoutHandler(handlers...))
	}
	all := append([]slog.Handler{base.Handler()}, handlers...)
	return slog.New(newFanoutHandler(all...))
}

// NewJSONDebugHandler opens path for append and returns a debug-level JSON handler.
func NewJSONDebugHandler(path string) (slog.Handler, error) {
	writer, err := openWriters([]string{path})
	if err != nil {
		return nil, err
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	return newJSONHandler(writer, level, true), nil
}
