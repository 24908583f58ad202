package printers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"octowatch/internal/logging"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o600))

	registry := NewRegistry([]Printer{{ID: "a", Name: "A"}})
	loader := func(p string) ([]Printer, error) {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		return []Printer{{ID: "b", Name: string(data)}}, nil
	}

	reloaded := make(chan []Printer, 4)
	watcher := NewWatcher(registry, path, loader, logging.NewNop())
	watcher.debounce = 10 * time.Millisecond
	watcher.OnReload = func(list []Printer) { reloaded <- list }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("Renamed"), 0o600)
		select {
		case <-reloaded:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 20*time.Millisecond)

	p, ok := registry.Resolve("b")
	require.True(t, ok)
	require.Equal(t, "Renamed", p.Name)
}

func TestWatcherKeepsRegistryOnLoadError(t *testing.T) {
	registry := NewRegistry([]Printer{{ID: "a", Name: "A"}})
	watcher := NewWatcher(registry, "/nonexistent/config.toml", func(string) ([]Printer, error) {
		return nil, os.ErrNotExist
	}, logging.NewNop())

	watcher.reload()

	_, ok := registry.Resolve("a")
	require.True(t, ok)
}
