package refresher

import (
	"fmt"
	"sync"
)

// Outcome is the terminal result of one refresh entry point.
type Outcome int

const (
	NoData Outcome = iota
	NewData
	Failed
)

func (o Outcome) String() string {
	switch o {
	case NewData:
		return "newData"
	case NoData:
		return "noData"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// MarshalText renders the outcome name in JSON responses.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ParseOutcome is the inverse of String.
func ParseOutcome(value string) (Outcome, error) {
	switch value {
	case "newData":
		return NewData, nil
	case "noData":
		return NoData, nil
	case "failed":
		return Failed, nil
	default:
		return NoData, fmt.Errorf("unknown outcome %q", value)
	}
}

// UnmarshalText accepts the names produced by MarshalText.
func (o *Outcome) UnmarshalText(data []byte) error {
	parsed, err := ParseOutcome(string(data))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Result is an asynchronous poll that completes exactly once.
type Result struct {
	once     sync.Once
	done     chan struct{}
	outcome  Outcome
	callback func(Outcome)
}

func newResult(callback func(Outcome)) *Result {
	return &Result{done: make(chan struct{}), callback: callback}
}

// complete records the outcome and runs the callback. Later calls are ignored.
func (r *Result) complete(outcome Outcome) {
	r.once.Do(func() {
		r.outcome = outcome
		close(r.done)
		if r.callback != nil {
			r.callback(outcome)
		}
	})
}

// Done is closed once the outcome is known.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the poll finishes and returns its outcome.
func (r *Result) Wait() Outcome {
	<-r.done
	return r.outcome
}
