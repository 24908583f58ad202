package testsupport

import (
	"context"
	"testing"

	"octowatch/internal/config"
	"octowatch/internal/journal"
)

// MustOpenJournal opens the journal under cfg's state directory and registers
// cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Journal {
	t.Helper()

	j, err := journal.Open(context.Background(), cfg.Paths.StateDir)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = j.Close()
	})
	return j
}
