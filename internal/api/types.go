package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// OutcomeResponse reports the refresh outcome of a push or poll.
type OutcomeResponse struct {
	Outcome string `json:"outcome"`
}

// StateRecord is one State Store entry.
type StateRecord struct {
	Key        string   `json:"key"`
	Printer    string   `json:"printer"`
	Status     string   `json:"status"`
	Completion *float64 `json:"completion"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
}

// StateResponse wraps the State Store snapshot.
type StateResponse struct {
	Records []StateRecord `json:"records"`
}

// PrinterInfo describes a registered printer. Credentials are never exposed.
type PrinterInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	PushCapable bool   `json:"push_capable"`
	Default     bool   `json:"default"`
}

// PrintersResponse wraps the registry listing.
type PrintersResponse struct {
	Printers []PrinterInfo `json:"printers"`
}

// DaemonStatus captures daemon runtime state.
type DaemonStatus struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	StartedAt     string `json:"started_at,omitempty"`
	Printers      int    `json:"printers"`
	Tracked       int    `json:"tracked"`
	StreamEnabled bool   `json:"stream_enabled"`
	LastPoll      string `json:"last_poll,omitempty"`
	LastOutcome   string `json:"last_outcome,omitempty"`
	JournalPath   string `json:"journal_path,omitempty"`
	LockFilePath  string `json:"lock_file_path"`
}

// TestNotificationResponse reports whether the test notification went out.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// HealthResponse is served unauthenticated for liveness probes.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
