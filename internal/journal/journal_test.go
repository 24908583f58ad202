package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	completion := 100.0

	_, err := j.Append(ctx, Entry{Printer: "MK4", Kind: KindCompanion, Status: "Printing", Source: "poll", Delivered: true, CreatedAt: base})
	require.NoError(t, err)
	_, err = j.Append(ctx, Entry{Printer: "MK4", Kind: KindNotify, Completion: &completion, Attachment: true, Delivered: true, Source: "stream", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	_, err = j.Append(ctx, Entry{Printer: "Voron", Kind: KindCompanion, Status: "Offline", Detail: "budget exhausted", CreatedAt: base.Add(500 * time.Millisecond)})
	require.NoError(t, err)

	entries, err := j.Recent(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, KindNotify, entries[0].Kind)
	require.True(t, entries[0].Attachment)
	require.NotNil(t, entries[0].Completion)
	require.Equal(t, 100.0, *entries[0].Completion)
	require.Equal(t, "Voron", entries[1].Printer)
	require.False(t, entries[1].Delivered)
	require.Equal(t, "budget exhausted", entries[1].Detail)
	require.Nil(t, entries[2].Completion)
	require.True(t, entries[2].CreatedAt.Equal(base))

	filtered, err := j.Recent(ctx, Query{Printer: "MK4", Kind: KindCompanion})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "Printing", filtered[0].Status)

	limited, err := j.Recent(ctx, Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestAppendRequiresPrinter(t *testing.T) {
	_, err := openTestJournal(t).Append(context.Background(), Entry{Kind: KindNotify})
	require.Error(t, err)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	now := time.Now().UTC()

	_, err := j.Append(ctx, Entry{Printer: "MK4", Kind: KindNotify, CreatedAt: now.Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = j.Append(ctx, Entry{Printer: "MK4", Kind: KindNotify, CreatedAt: now})
	require.NoError(t, err)

	removed, err := j.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	entries, err := j.Recent(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestReopenKeepsHistory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	j, err := Open(ctx, dir)
	require.NoError(t, err)
	_, err = j.Append(ctx, Entry{Printer: "MK4", Kind: KindCompanion})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(ctx, dir)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.Recent(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, filepath.Join(dir, FileName), j.Path())
}

func TestNilJournalIsNoop(t *testing.T) {
	var j *Journal
	id, err := j.Append(context.Background(), Entry{Printer: "MK4"})
	require.NoError(t, err)
	require.Zero(t, id)
	require.NoError(t, j.Close())
}
