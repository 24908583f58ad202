package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"octowatch/internal/config"
	"octowatch/internal/daemon"
	"octowatch/internal/journal"
	"octowatch/internal/logging"
	"octowatch/internal/notifications"
	"octowatch/internal/octoprint"
	"octowatch/internal/printers"
	"octowatch/internal/reconcile"
	"octowatch/internal/refresher"
	"octowatch/internal/state"
)

// PIDFileName is written inside paths.state_dir while the daemon runs.
const PIDFileName = "octowatch.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
	// ConfigPath enables printer reloads when the file changes.
	ConfigPath string
}

// Run starts the octowatch daemon runtime loop and blocks until SIGINT/SIGTERM
// or cmdCtx is cancelled.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("octowatch-%s.log", runID))

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if opts.Diagnostic {
		debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
		if err := os.MkdirAll(debugDir, 0o755); err != nil {
			return fmt.Errorf("create debug log directory: %w", err)
		}
		debugLogPath := filepath.Join(debugDir, fmt.Sprintf("octowatch-%s.log", runID))
		handler, debugErr := logging.NewJSONDebugHandler(debugLogPath)
		if debugErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", debugErr)
		} else {
			logger = logging.TeeLogger(logger, handler)
		}
		logger.Info("diagnostic mode enabled",
			logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
			logging.String("debug_log_path", debugLogPath),
		)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "octowatch-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, "debug"), Pattern: "*.log"},
	)
	logConfigSnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.StateDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	j, err := journal.Open(signalCtx, cfg.Paths.StateDir)
	if err != nil {
		logger.Error("open journal", logging.Error(err))
		return err
	}

	d, err := assemble(cfg, logger, j, opts.ConfigPath)
	if err != nil {
		_ = j.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other instance or check state_dir and api_bind"),
			logging.String(logging.FieldImpact, "no printer updates are processed"),
		)
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("octowatch daemon shutting down")
	return nil
}

// assemble builds the reconcile pipeline: registry, dispatcher, engine,
// refresher and the optional live stream.
func assemble(cfg *config.Config, logger *slog.Logger, j *journal.Journal, configPath string) (*daemon.Daemon, error) {
	pollTimeout := time.Duration(cfg.Poll.RequestTimeout) * time.Second
	registry := printers.NewRegistry(printers.FromConfig(cfg.Printers))
	client := octoprint.NewClient(pollTimeout)

	dispatcher := notifications.NewDispatcher(cfg, notifications.Options{Journal: j, Logger: logger})
	engine := reconcile.NewEngine(state.NewStore(), dispatcher, logger, reconcile.KeyMode(cfg.State.KeyMode))
	ref := refresher.New(registry, client, engine, logger, pollTimeout)

	var stream *octoprint.Stream
	if cfg.Stream.Enabled {
		if _, ok := registry.Default(); ok {
			maxBackoff := time.Duration(cfg.Stream.MaxBackoffSeconds) * time.Second
			stream = octoprint.NewStream(client, registry.Default, logger, maxBackoff)
		} else {
			logging.WarnWithContext(logger, "live stream disabled", "stream_no_default_printer",
				logging.String(logging.FieldErrorHint, "mark one printer default = true"),
				logging.String(logging.FieldImpact, "state changes rely on push and poll only"),
			)
		}
	}

	return daemon.New(cfg, logger, daemon.Deps{
		Registry:   registry,
		Engine:     engine,
		Refresher:  ref,
		Dispatcher: dispatcher,
		Journal:    j,
		Stream:     stream,
		ConfigPath: configPath,
	})
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID returns the pid recorded by a running daemon.
func ReadPID(stateDir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(stateDir, PIDFileName))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	defaultName := ""
	if p, ok := cfg.DefaultPrinter(); ok {
		defaultName = p.Name
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.Int("printers", len(cfg.Printers)),
		logging.String("default_printer", defaultName),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("companion_configured", strings.TrimSpace(cfg.Companion.Endpoint) != ""),
		logging.Int("companion_daily_budget", cfg.Companion.DailyBudget),
		logging.Int("poll_interval_seconds", cfg.Poll.IntervalSeconds),
		logging.Bool("stream_enabled", cfg.Stream.Enabled),
		logging.String("key_mode", cfg.State.KeyMode),
		logging.Bool("api_auth", strings.TrimSpace(cfg.Paths.APIToken) != ""),
	)
}
