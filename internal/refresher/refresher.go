package refresher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"octowatch/internal/logging"
	"octowatch/internal/octoprint"
	"octowatch/internal/printers"
	"octowatch/internal/reconcile"
)

const defaultPollTimeout = 20 * time.Second

// Registry resolves printers. *printers.Registry satisfies it.
type Registry interface {
	Resolve(identity string) (printers.Printer, bool)
	Default() (printers.Printer, bool)
}

// Evaluator runs reconcile decisions. *reconcile.Engine satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, ev reconcile.Event) reconcile.Decision
	CheckCompletion(ctx context.Context, ev reconcile.Event) reconcile.Decision
}

// Refresher owns the push, stream and poll entry points.
type Refresher struct {
	registry    Registry
	fetcher     octoprint.JobFetcher
	engine      Evaluator
	logger      *slog.Logger
	pollTimeout time.Duration
}

// New builds a Refresher. pollTimeout bounds a single poll fetch.
func New(registry Registry, fetcher octoprint.JobFetcher, engine Evaluator, logger *slog.Logger, pollTimeout time.Duration) *Refresher {
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	return &Refresher{
		registry:    registry,
		fetcher:     fetcher,
		engine:      engine,
		logger:      logging.NewComponentLogger(logger, "refresher"),
		pollTimeout: pollTimeout,
	}
}

// OnPushReceived handles a plugin push. A test push only runs the completion
// check, with completion forced to 100.
func (r *Refresher) OnPushReceived(ctx context.Context, payload PushPayload) Outcome {
	ctx = withRequestID(ctx)
	logger := logging.WithContext(ctx, r.logger)

	printer, ok := r.registry.Resolve(payload.PrinterID)
	if !ok {
		err := wrap(ErrUnresolvedIdentity, "", "push", payload.PrinterID, nil)
		logging.WarnWithContext(logger, "push for unknown printer ignored", "push_unresolved_printer",
			logging.String("printer_id", payload.PrinterID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "match printer_id to a printers[].id in config.toml"),
			logging.String(logging.FieldImpact, "push ignored"),
		)
		return NoData
	}

	ev := reconcile.Event{
		PrinterID:   printer.ID,
		Printer:     printer.Name,
		Status:      payload.PrinterState,
		Completion:  payload.ProgressCompletion,
		MediaURL:    payload.MediaURL,
		PushCapable: printer.PushCapable,
		Source:      reconcile.SourcePush,
	}
	if payload.Test {
		complete := reconcile.CompleteValue
		ev.Completion = &complete
		ev.Test = true
		ev.Source = reconcile.SourceTest
		r.engine.CheckCompletion(ctx, ev)
	} else {
		r.engine.Evaluate(ctx, ev)
	}
	logger.Debug("push handled",
		logging.String(logging.FieldPrinter, printer.Name),
		logging.String(logging.FieldStatus, payload.PrinterState),
		logging.Bool("test", payload.Test),
	)
	return NewData
}

// OnLiveStateChanged evaluates a websocket observation from source, the
// printer whose socket delivered it. The printer is looked up again so a
// reload's settings apply; frames from a printer no longer configured are
// dropped, as are frames without a state.
func (r *Refresher) OnLiveStateChanged(ctx context.Context, source printers.Printer, current octoprint.CurrentState) {
	if current.State == nil {
		return
	}
	identity := source.ID
	if identity == "" {
		identity = source.Name
	}
	printer, ok := r.registry.Resolve(identity)
	if !ok {
		r.logger.Debug("stream frame from unknown printer dropped",
			logging.String(logging.FieldPrinter, source.Name),
			logging.String(logging.FieldStatus, *current.State),
		)
		return
	}
	r.engine.Evaluate(ctx, reconcile.Event{
		PrinterID:   printer.ID,
		Printer:     printer.Name,
		Status:      *current.State,
		Completion:  current.Completion,
		PushCapable: printer.PushCapable,
		Source:      reconcile.SourceStream,
	})
}

// OnBackgroundPollTick fetches the default printer's job and evaluates it. It
// is a fallback for servers without push support and skips push-capable ones.
// The fetch is not cancelled by ctx; it ends on completion or on the poll
// timeout.
func (r *Refresher) OnBackgroundPollTick(ctx context.Context) Outcome {
	ctx = withRequestID(ctx)
	logger := logging.WithContext(ctx, r.logger)

	printer, ok := r.registry.Default()
	if !ok {
		logger.Debug("poll skipped", logging.String("reason", "no default printer"))
		return NoData
	}
	logger = logger.With(logging.String(logging.FieldPrinter, printer.Name))
	if printer.PushCapable {
		logger.Debug("poll skipped", logging.String("reason", "printer delivers pushes"))
		return NoData
	}

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.pollTimeout)
	defer cancel()
	job, err := r.fetcher.FetchCurrentJob(fetchCtx, printer)
	if err != nil {
		r.logPollFailure(logger, printer, err)
		return Failed
	}
	if job.State == nil {
		err := wrap(ErrMalformedResponse, printer.Name, "poll", "job response has no state", nil)
		logger.Info("poll returned no state", logging.Error(err), logging.String(logging.FieldEventType, "poll_no_state"))
		return NoData
	}

	r.engine.Evaluate(ctx, reconcile.Event{
		PrinterID:   printer.ID,
		Printer:     printer.Name,
		Status:      *job.State,
		Completion:  job.Completion,
		PushCapable: printer.PushCapable,
		Source:      reconcile.SourcePoll,
	})
	return NewData
}

// PollAsync runs OnBackgroundPollTick on its own goroutine. callback, when
// set, runs exactly once with the outcome.
func (r *Refresher) PollAsync(ctx context.Context, callback func(Outcome)) *Result {
	result := newResult(callback)
	go func() {
		outcome := Failed
		defer func() {
			if rec := recover(); rec != nil {
				logging.ErrorWithContext(r.logger, "poll panicked", "poll_panic", logging.Any("panic", rec))
				outcome = Failed
			}
			result.complete(outcome)
		}()
		outcome = r.OnBackgroundPollTick(ctx)
	}()
	return result
}

func (r *Refresher) logPollFailure(logger *slog.Logger, printer printers.Printer, err error) {
	switch {
	case octoprint.IsAuthError(err):
		logging.WarnWithContext(logger, "poll rejected: incorrect api key?", "poll_auth_failed",
			logging.Error(wrap(ErrAuthFailure, printer.Name, "poll", "", err)),
			logging.String(logging.FieldErrorHint, "check printers[].api_key in config.toml"),
			logging.String(logging.FieldImpact, "printer state not refreshed"),
		)
	case octoprint.StatusCode(err) != 0:
		logging.WarnWithContext(logger, "poll returned unexpected http status", "poll_http_status",
			logging.Int("status_code", octoprint.StatusCode(err)),
			logging.Error(wrap(ErrTransportFailure, printer.Name, "poll", "unexpected status", err)),
			logging.String(logging.FieldErrorHint, "check the OctoPrint server logs"),
			logging.String(logging.FieldImpact, "printer state not refreshed"),
		)
	default:
		hint := "check the printer url and network access"
		if errors.Is(err, context.DeadlineExceeded) {
			hint = "raise poll.request_timeout or check the printer is reachable"
		}
		logging.WarnWithContext(logger, "poll failed", "poll_transport_failed",
			logging.Error(wrap(ErrTransportFailure, printer.Name, "poll", "", err)),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "printer state not refreshed"),
		)
	}
}

func withRequestID(ctx context.Context) context.Context {
	if _, ok := logging.RequestIDFromContext(ctx); ok {
		return ctx
	}
	return logging.WithRequestID(ctx, uuid.NewString())
}
