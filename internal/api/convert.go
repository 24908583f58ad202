package api

import (
	"time"

	"octowatch/internal/printers"
	"octowatch/internal/state"
)

// FromRecord converts a State Store record to its API representation.
func FromRecord(rec state.Record) StateRecord {
	dto := StateRecord{
		Key:     rec.Key,
		Printer: rec.Printer,
		Status:  rec.Status,
	}
	if rec.Completion != nil {
		v := *rec.Completion
		dto.Completion = &v
	}
	dto.UpdatedAt = FormatTime(rec.UpdatedAt)
	return dto
}

// FromRecords converts a snapshot, preserving order.
func FromRecords(records []state.Record) []StateRecord {
	out := make([]StateRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, FromRecord(rec))
	}
	return out
}

// FromPrinter converts a registry printer, dropping credentials.
func FromPrinter(p printers.Printer) PrinterInfo {
	return PrinterInfo{
		ID:          p.ID,
		Name:        p.Name,
		URL:         p.URL,
		PushCapable: p.PushCapable,
		Default:     p.Default,
	}
}

// FromPrinters converts a registry listing, preserving order.
func FromPrinters(list []printers.Printer) []PrinterInfo {
	out := make([]PrinterInfo, 0, len(list))
	for _, p := range list {
		out = append(out, FromPrinter(p))
	}
	return out
}

// FormatTime renders ts in UTC, or "" for the zero time.
func FormatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}

// ParseTime is the inverse of FormatTime.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateTimeFormat, value)
}
