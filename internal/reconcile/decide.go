package reconcile

import "octowatch/internal/state"

// Decide evaluates ev against the previous record for the same printer.
//
// The returned record is what the caller must store; nil means the store is
// left untouched. A test event only runs the completion check. Decide never
// fails.
func Decide(prev *state.Record, ev Event) (Decision, *state.Record) {
	if ev.Test {
		return DecideCompletion(prev, ev), nil
	}
	if prev != nil && prev.Status == ev.Status {
		return Decision{}, nil
	}

	var decision Decision
	if !ev.PushCapable && ev.Completion != nil {
		decision.Notify = completionCheck(prev, ev.Printer, ev.Status, *ev.Completion, ev.MediaURL, false)
	}

	canonical := Normalize(ev.Status)
	if canonical == StatusPrinting && ev.Completion == nil {
		return decision, nil
	}

	next := &state.Record{
		Printer:    ev.Printer,
		Status:     ev.Status,
		Completion: copyFloat(ev.Completion),
	}
	if Pushable(canonical) {
		decision.Push = &CompanionUpdate{
			Printer:    ev.Printer,
			Status:     canonical,
			Completion: copyFloat(ev.Completion),
		}
	}
	return decision, next
}

// DecideCompletion runs only the "print complete" check. The test path uses it
// with completion forced to 100; it never changes stored state.
func DecideCompletion(prev *state.Record, ev Event) Decision {
	completion := CompleteValue
	if ev.Completion != nil {
		completion = *ev.Completion
	}
	return Decision{Notify: completionCheck(prev, ev.Printer, ev.Status, completion, ev.MediaURL, ev.Test)}
}

func completionCheck(prev *state.Record, printer, status string, completion float64, mediaURL string, test bool) *LocalNotification {
	finished := prev != nil &&
		prev.Status != StatusOperational &&
		(status == StatusFinishing || status == StatusOperational) &&
		!prev.CompletionEquals(CompleteValue) &&
		completion == CompleteValue
	if !finished && !test {
		return nil
	}
	return &LocalNotification{Printer: printer, MediaURL: mediaURL}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	dup := *v
	return &dup
}
