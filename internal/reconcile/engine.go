package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"octowatch/internal/logging"
	"octowatch/internal/state"
)

// Dispatcher carries out a Decision.
type Dispatcher interface {
	EmitLocalNotification(ctx context.Context, printer, mediaURL string)
	PushComplicationUpdate(ctx context.Context, printer, status string, completion *float64)
}

// dispatchTimeout bounds the effects of one decision: image fetch, ntfy send
// and companion push together.
const dispatchTimeout = 2 * time.Minute

// KeyMode selects how events map onto state store keys.
type KeyMode string

const (
	// KeyByName keys records by printer display name.
	KeyByName KeyMode = "name"
	// KeyByID keys records by the stable printer identity URL.
	KeyByID KeyMode = "id"
)

// Engine serializes evaluations per printer key and dispatches the results.
type Engine struct {
	store      *state.Store
	dispatcher Dispatcher
	logger     *slog.Logger
	keyMode    KeyMode

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine builds an engine over store. A nil store gets a fresh one.
func NewEngine(store *state.Store, dispatcher Dispatcher, logger *slog.Logger, mode KeyMode) *Engine {
	if store == nil {
		store = state.NewStore()
	}
	if mode != KeyByID {
		mode = KeyByName
	}
	return &Engine{
		store:      store,
		dispatcher: dispatcher,
		logger:     logging.NewComponentLogger(logger, "reconcile"),
		keyMode:    mode,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Store exposes the engine's state store for read-only snapshots.
func (e *Engine) Store() *state.Store {
	return e.store
}

// Key returns the state store key for ev.
func (e *Engine) Key(ev Event) string {
	if e.keyMode == KeyByID && ev.PrinterID != "" {
		return ev.PrinterID
	}
	return ev.Printer
}

// Evaluate runs the full decision for ev and dispatches whatever it yields.
func (e *Engine) Evaluate(ctx context.Context, ev Event) Decision {
	key := e.Key(ev)
	unlock := e.lock(key)
	defer unlock()

	prev := e.previous(key)
	decision, next := Decide(prev, ev)
	if next != nil {
		e.store.Set(key, *next)
	}

	e.log(ctx, ev, decision, reason(prev, ev, decision, next))
	e.dispatch(ctx, ev, decision)
	return decision
}

// CheckCompletion runs only the "print complete" check for ev. State is read
// but never written.
func (e *Engine) CheckCompletion(ctx context.Context, ev Event) Decision {
	key := e.Key(ev)
	unlock := e.lock(key)
	defer unlock()

	decision := DecideCompletion(e.previous(key), ev)
	result := "skipped"
	if decision.Notify != nil {
		result = "notify"
	}
	e.logger.InfoContext(ctx, "completion check",
		logging.Args(append(e.eventAttrs(ctx, ev),
			logging.DecisionAttrs("completion_check", result, completionReason(ev, decision))...)...)...)
	e.dispatch(ctx, ev, decision)
	return decision
}

func (e *Engine) previous(key string) *state.Record {
	rec, ok := e.store.Get(key)
	if !ok {
		return nil
	}
	return &rec
}

// lock takes the per-key mutex. Dispatch runs under it so effects for one
// printer are delivered in evaluation order.
func (e *Engine) lock(key string) func() {
	e.mu.Lock()
	m, ok := e.locks[key]
	if !ok {
		m = &sync.Mutex{}
		e.locks[key] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (e *Engine) dispatch(ctx context.Context, ev Event, decision Decision) {
	if e.dispatcher == nil || decision.IsNone() {
		return
	}
	// The new state is already stored, so effects must outlive the caller.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()
	ctx = logging.WithSource(ctx, string(ev.Source))
	if n := decision.Notify; n != nil {
		e.dispatcher.EmitLocalNotification(ctx, n.Printer, n.MediaURL)
	}
	if p := decision.Push; p != nil {
		e.dispatcher.PushComplicationUpdate(ctx, p.Printer, p.Status, p.Completion)
	}
}

func (e *Engine) log(ctx context.Context, ev Event, decision Decision, why string) {
	attrs := append(e.eventAttrs(ctx, ev), logging.DecisionAttrs("state_change", decision.String(), why)...)
	if decision.IsNone() {
		e.logger.DebugContext(ctx, "state unchanged", logging.Args(attrs...)...)
		return
	}
	e.logger.InfoContext(ctx, "state evaluated", logging.Args(attrs...)...)
}

func (e *Engine) eventAttrs(ctx context.Context, ev Event) []logging.Attr {
	attrs := []logging.Attr{
		logging.String(logging.FieldPrinter, ev.Printer),
		logging.String(logging.FieldStatus, ev.Status),
		logging.Completion(ev.Completion),
		logging.String(logging.FieldSource, string(ev.Source)),
	}
	if rid, ok := logging.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, logging.String(logging.FieldCorrelationID, rid))
	}
	return attrs
}

func reason(prev *state.Record, ev Event, decision Decision, next *state.Record) string {
	switch {
	case ev.Test:
		return "test event"
	case prev != nil && prev.Status == ev.Status:
		return "status unchanged"
	case next == nil:
		return "printing without completion"
	case decision.Push == nil && decision.Notify == nil:
		return "status not shown on companion"
	case decision.Notify != nil:
		return "job finished"
	default:
		return "status changed"
	}
}

func completionReason(ev Event, decision Decision) string {
	switch {
	case ev.Test:
		return "test event"
	case decision.Notify != nil:
		return "job finished"
	default:
		return "job not finished"
	}
}
