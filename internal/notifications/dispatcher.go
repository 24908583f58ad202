package notifications

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/message"

	"octowatch/internal/companion"
	"octowatch/internal/config"
	"octowatch/internal/journal"
	"octowatch/internal/logging"
	"octowatch/internal/reconcile"
)

var _ reconcile.Dispatcher = (*Dispatcher)(nil)

// Journal records dispatched actions. *journal.Journal satisfies it.
type Journal interface {
	Append(ctx context.Context, entry journal.Entry) (int64, error)
}

// Dispatcher turns reconcile decisions into notifications and companion
// updates. It is safe for concurrent use.
type Dispatcher struct {
	notifier       Notifier
	companion      companion.Channel
	journal        Journal
	attachmentsDir string
	imageClient    *http.Client
	printer        *message.Printer
	logger         *slog.Logger
}

// Options wires a Dispatcher. Nil collaborators fall back to no-ops.
type Options struct {
	Notifier  Notifier
	Companion companion.Channel
	Journal   Journal
	Logger    *slog.Logger
}

// NewDispatcher builds a dispatcher from configuration.
func NewDispatcher(cfg *config.Config, opts Options) *Dispatcher {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NewNotifier(cfg.Notifications)
	}
	channel := opts.Companion
	if channel == nil {
		channel = companion.New(cfg.Companion)
	}
	imageTimeout := time.Duration(cfg.Notifications.ImageTimeout) * time.Second
	if imageTimeout <= 0 {
		imageTimeout = 15 * time.Second
	}
	return &Dispatcher{
		notifier:       notifier,
		companion:      channel,
		journal:        opts.Journal,
		attachmentsDir: cfg.Paths.AttachmentsDir,
		imageClient:    &http.Client{Timeout: imageTimeout},
		printer:        newPrinter(cfg.Notifications.Language),
		logger:         logging.NewComponentLogger(opts.Logger, "dispatcher"),
	}
}

// EmitLocalNotification sends the "print complete" notification for printer,
// attaching the snapshot at mediaURL when it can be fetched.
func (d *Dispatcher) EmitLocalNotification(ctx context.Context, printer, mediaURL string) {
	logger := logging.WithContext(ctx, d.logger).With(logging.String(logging.FieldPrinter, printer))
	msg := Message{
		Title:    printer,
		Body:     d.printer.Sprintf(msgPrintComplete),
		Tags:     []string{"octowatch", "print", "completed"},
		Priority: "high",
	}

	if mediaURL = strings.TrimSpace(mediaURL); mediaURL != "" {
		path, err := fetchAttachment(ctx, d.imageClient, d.attachmentsDir, mediaURL)
		if err != nil {
			logging.WarnWithContext(logger, "snapshot attachment skipped", "attachment_failed",
				logging.String("media_url", mediaURL),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the webcam snapshot url is reachable"),
				logging.String(logging.FieldImpact, "notification sent without image"),
			)
		} else {
			msg.Attachment = path
		}
	}

	err := d.notifier.Send(ctx, msg)
	if err != nil && msg.Attachment != "" {
		logging.WarnWithContext(logger, "notification with attachment failed; retrying without", "attachment_delivery_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "notification sent without image"),
		)
		msg.Attachment = ""
		err = d.notifier.Send(ctx, msg)
	}
	entry := journal.Entry{
		Printer:    printer,
		Kind:       journal.KindNotify,
		Completion: completionPtr(100),
		Attachment: msg.Attachment != "",
		Delivered:  err == nil,
	}
	if err != nil {
		entry.Detail = err.Error()
		logging.ErrorWithContext(logger, "print complete notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
		)
	} else {
		logger.Info("print complete notification sent",
			logging.String(logging.FieldEventType, "notification_sent"),
			logging.Bool("attachment", entry.Attachment),
		)
	}
	d.record(ctx, entry)
}

// PushComplicationUpdate forwards a canonical status to the companion display.
func (d *Dispatcher) PushComplicationUpdate(ctx context.Context, printer, status string, completion *float64) {
	logger := logging.WithContext(ctx, d.logger).With(logging.String(logging.FieldPrinter, printer))
	err := d.companion.Update(ctx, companion.Update{Printer: printer, State: status, Completion: completion})

	entry := journal.Entry{
		Printer:    printer,
		Kind:       journal.KindCompanion,
		Status:     status,
		Completion: completion,
		Delivered:  err == nil,
	}
	switch {
	case errors.Is(err, companion.ErrBudgetExhausted):
		entry.Detail = err.Error()
		logging.WarnWithContext(logger, "companion update dropped", "companion_budget_exhausted",
			logging.String(logging.FieldStatus, status),
			logging.String(logging.FieldErrorHint, "raise companion.daily_budget or wait for the budget to refill"),
			logging.String(logging.FieldImpact, "companion display shows stale status"),
		)
	case err != nil:
		entry.Detail = err.Error()
		logging.WarnWithContext(logger, "companion update failed", "companion_update_failed",
			logging.String(logging.FieldStatus, status),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check companion.endpoint"),
			logging.String(logging.FieldImpact, "companion display shows stale status"),
		)
	default:
		logger.Info("companion updated",
			logging.String(logging.FieldEventType, "companion_updated"),
			logging.String(logging.FieldStatus, status),
			logging.Completion(completion),
		)
	}
	d.record(ctx, entry)
}

// TestNotification sends a low-priority test message.
func (d *Dispatcher) TestNotification(ctx context.Context) error {
	return d.notifier.Send(ctx, Message{
		Title:    "octowatch - Test",
		Body:     d.printer.Sprintf(msgTestBody),
		Tags:     []string{"octowatch", "test"},
		Priority: "low",
	})
}

func (d *Dispatcher) record(ctx context.Context, entry journal.Entry) {
	if d.journal == nil {
		return
	}
	if source, ok := logging.SourceFromContext(ctx); ok {
		entry.Source = source
	}
	if _, err := d.journal.Append(ctx, entry); err != nil {
		logging.WarnWithContext(d.logger, "journal write failed", "journal_write_failed",
			logging.String(logging.FieldPrinter, entry.Printer),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and free space"),
			logging.String(logging.FieldImpact, "history is missing this entry"),
		)
	}
}

func completionPtr(v float64) *float64 { return &v }
