package printers

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"octowatch/internal/config"
	"octowatch/internal/logging"
)

// Loader re-reads the printer list from the config file.
type Loader func(path string) ([]Printer, error)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a Registry whenever its config file changes.
type Watcher struct {
	registry *Registry
	path     string
	loader   Loader
	logger   *slog.Logger
	debounce time.Duration

	// OnReload, when set, runs after every successful reload.
	OnReload func([]Printer)
}

// NewWatcher builds a watcher for path. The parent directory is watched so
// editors that replace the file atomically are still seen.
func NewWatcher(registry *Registry, path string, loader Loader, logger *slog.Logger) *Watcher {
	return &Watcher{
		registry: registry,
		path:     filepath.Clean(path),
		loader:   loader,
		logger:   logging.NewComponentLogger(logger, "printers"),
		debounce: defaultDebounce,
	}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, w.reload)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("config file event", logging.String("op", event.Op.String()))
			schedule()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "config watcher error", "printer_watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "printer edits may not be picked up until restart"),
			)
		}
	}
}

func (w *Watcher) reload() {
	list, err := w.loader(w.path)
	if err != nil {
		logging.WarnWithContext(w.logger, "printer reload failed", "printer_reload_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix config.toml; the previous printer list stays active"),
			logging.String(logging.FieldImpact, "printer changes ignored"),
		)
		return
	}
	w.registry.Replace(list)
	w.logger.Info("printers reloaded", logging.Int("printer_count", len(list)))
	if w.OnReload != nil {
		w.OnReload(list)
	}
}

// LoadFromConfig is the Loader backed by config.toml.
func LoadFromConfig(path string) ([]Printer, error) {
	list, err := config.LoadPrinters(path)
	if err != nil {
		return nil, err
	}
	return FromConfig(list), nil
}
