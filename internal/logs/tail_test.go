package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"octowatch/internal/logs"
)

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "octowatch.log")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\n"), 0o644))

	lines, offset, err := logs.LastLines(path, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, lines)
	require.EqualValues(t, 6, offset)

	lines, _, err = logs.LastLines(path, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, lines)
}

func TestLastLinesMissingFile(t *testing.T) {
	lines, offset, err := logs.LastLines(filepath.Join(t.TempDir(), "nope.log"), 5)
	require.NoError(t, err)
	require.Empty(t, lines)
	require.Zero(t, offset)
}

func TestReadFromKeepsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "octowatch.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntw"), 0o644))

	lines, offset, err := logs.ReadFrom(path, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"one"}, lines)
	require.EqualValues(t, 4, offset)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("o\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	lines, _, err = logs.ReadFrom(path, offset)
	require.NoError(t, err)
	require.Equal(t, []string{"two"}, lines)
}

func TestReadFromRestartsAfterTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "octowatch.log")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))

	lines, _, err := logs.ReadFrom(path, 100)
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, lines)
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "octowatch.log")
	require.NoError(t, os.WriteFile(path, []byte("start\n"), 0o644))
	_, offset, err := logs.LastLines(path, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("later\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "later"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.True(t, errors.Is(<-done, context.Canceled))
}

func TestFollowReopensWhenPointerMoves(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "octowatch-run1.log")
	second := filepath.Join(dir, "octowatch-run2.log")
	pointer := filepath.Join(dir, "octowatch.log")
	require.NoError(t, os.WriteFile(first, []byte("old\n"), 0o644))
	require.NoError(t, os.Symlink(first, pointer))
	_, offset, err := logs.LastLines(pointer, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, pointer, offset, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	require.NoError(t, os.WriteFile(second, []byte("fresh\n"), 0o644))
	next := filepath.Join(dir, "octowatch.log.next")
	require.NoError(t, os.Symlink(second, next))
	require.NoError(t, os.Rename(next, pointer))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "fresh"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.True(t, errors.Is(<-done, context.Canceled))
}
