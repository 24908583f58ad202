package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"octowatch/internal/config"
	"octowatch/internal/journal"
	"octowatch/internal/logging"
	"octowatch/internal/notifications"
	"octowatch/internal/octoprint"
	"octowatch/internal/printers"
	"octowatch/internal/reconcile"
	"octowatch/internal/refresher"
	"octowatch/internal/state"
)

// LockFileName is the single-instance lock created inside paths.state_dir.
const LockFileName = "octowatch.lock"

const maintenanceInterval = 6 * time.Hour

// Deps are the collaborators a Daemon coordinates. Stream is optional and
// ConfigPath enables printer reloads when non-empty.
type Deps struct {
	Registry   *printers.Registry
	Engine     *reconcile.Engine
	Refresher  *refresher.Refresher
	Dispatcher *notifications.Dispatcher
	Journal    *journal.Journal
	Stream     *octoprint.Stream
	ConfigPath string
}

// Daemon owns background loops and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   Deps
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	pollMu      sync.Mutex
	lastPoll    time.Time
	lastOutcome refresher.Outcome
	polled      bool
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	StartedAt     time.Time
	Printers      int
	Tracked       int
	StreamEnabled bool
	LastPoll      time.Time
	LastOutcome   string
	JournalPath   string
	LockFilePath  string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.Registry == nil || deps.Engine == nil || deps.Refresher == nil || deps.Dispatcher == nil {
		return nil, errors.New("daemon requires config, registry, engine, refresher, and dispatcher")
	}
	lockPath := filepath.Join(cfg.Paths.StateDir, LockFileName)
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		deps:     deps,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the background loops and API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another octowatch daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}

	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)

	d.goRun(func() { d.pollLoop(runCtx) })
	d.goRun(func() { d.maintenanceLoop(runCtx) })
	if d.deps.Stream != nil {
		d.goRun(func() { d.runStream(runCtx) })
	}
	if strings.TrimSpace(d.deps.ConfigPath) != "" {
		d.goRun(func() { d.runWatcher(runCtx) })
	}

	d.logger.Info("octowatch daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.Int("printers", len(d.deps.Registry.All())),
		logging.Bool("stream", d.deps.Stream != nil),
	)
	return nil
}

// Stop cancels background work, waits for it to drain, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("octowatch daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.deps.Journal != nil {
		return d.deps.Journal.Close()
	}
	return nil
}

// Address returns the API listen address once started.
func (d *Daemon) Address() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.pollMu.Lock()
	lastPoll, lastOutcome, polled := d.lastPoll, d.lastOutcome, d.polled
	d.pollMu.Unlock()

	status := Status{
		Running:       d.running.Load(),
		Printers:      len(d.deps.Registry.All()),
		Tracked:       d.deps.Engine.Store().Len(),
		StreamEnabled: d.deps.Stream != nil,
		LockFilePath:  d.lockPath,
	}
	if status.Running {
		status.StartedAt = d.startedAt
	}
	if polled {
		status.LastPoll = lastPoll
		status.LastOutcome = lastOutcome.String()
	}
	if d.deps.Journal != nil {
		status.JournalPath = d.deps.Journal.Path()
	}
	return status
}

// Push hands a plugin payload to the refresher.
func (d *Daemon) Push(ctx context.Context, payload refresher.PushPayload) refresher.Outcome {
	return d.deps.Refresher.OnPushReceived(ctx, payload)
}

// Poll runs one background poll tick and waits for its outcome.
func (d *Daemon) Poll(ctx context.Context) refresher.Outcome {
	return d.deps.Refresher.PollAsync(ctx, d.recordPoll).Wait()
}

// State returns a snapshot of the tracked printer records.
func (d *Daemon) State() []state.Record {
	return d.deps.Engine.Store().Snapshot()
}

// Printers lists the registered printers.
func (d *Daemon) Printers() []printers.Printer {
	return d.deps.Registry.All()
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.deps.Dispatcher.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) recordPoll(outcome refresher.Outcome) {
	d.pollMu.Lock()
	d.lastPoll = time.Now()
	d.lastOutcome = outcome
	d.polled = true
	d.pollMu.Unlock()
}

func (d *Daemon) goRun(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}
