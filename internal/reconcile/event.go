package reconcile

import "strings"

// Source names the ingestion path an Event came from.
type Source string

const (
	SourcePush   Source = "push"
	SourceStream Source = "stream"
	SourcePoll   Source = "poll"
	SourceTest   Source = "test"
)

// Raw and canonical status values the engine reasons about.
const (
	StatusOperational    = "Operational"
	StatusPrinting       = "Printing"
	StatusPrintingFromSD = "Printing from SD"
	StatusPaused         = "Paused"
	StatusOffline        = "Offline"
	StatusFinishing      = "Finishing"

	offlineErrorPrefix = "Offline (Error:"
)

// CompleteValue is the completion percentage that marks a finished job.
const CompleteValue = 100.0

// Event is a normalized printer-state observation.
type Event struct {
	PrinterID   string
	Printer     string
	Status      string
	Completion  *float64
	MediaURL    string
	Test        bool
	PushCapable bool
	Source      Source
}

// LocalNotification asks the dispatcher to emit a "print complete" notification.
type LocalNotification struct {
	Printer  string
	MediaURL string
}

// CompanionUpdate asks the dispatcher to refresh the companion display.
type CompanionUpdate struct {
	Printer    string
	Status     string
	Completion *float64
}

// Decision is the outcome of one evaluation. Both fields nil means no action.
type Decision struct {
	Notify *LocalNotification
	Push   *CompanionUpdate
}

// IsNone reports whether the decision triggers nothing.
func (d Decision) IsNone() bool {
	return d.Notify == nil && d.Push == nil
}

// String summarizes the decision for logs.
func (d Decision) String() string {
	switch {
	case d.Notify != nil && d.Push != nil:
		return "notify+push"
	case d.Notify != nil:
		return "notify"
	case d.Push != nil:
		return "push"
	default:
		return "none"
	}
}

// Normalize maps a raw status onto the companion vocabulary.
func Normalize(raw string) string {
	switch {
	case raw == StatusPrintingFromSD:
		return StatusPrinting
	case strings.HasPrefix(raw, offlineErrorPrefix):
		return StatusOffline
	default:
		return raw
	}
}

// Pushable reports whether a canonical status is understood by the companion display.
func Pushable(canonical string) bool {
	switch canonical {
	case StatusOffline, StatusOperational, StatusPrinting, StatusPaused:
		return true
	default:
		return false
	}
}
