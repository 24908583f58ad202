// Package logging assembles the structured slog loggers used across octowatch.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context helpers so ingestion adapters can tag every line with the
// printer, event source, and request correlation ID that triggered it. A no-op
// logger is provided for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// the same field names (event_type, error_hint, impact) as the rest of the
// daemon.
package logging
