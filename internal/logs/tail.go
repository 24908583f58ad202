package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hpcloud/tail"
)

const maxLineBytes = 1024 * 1024

// LastLines returns up to limit trailing lines of path and the offset just
// past them. A missing file yields no lines and offset 0.
func LastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	ring := make([]string, limit)
	count, idx := 0, 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := range count {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// ReadFrom returns complete lines written after offset. An offset beyond the
// end of the file means it was truncated or replaced, and reading restarts at 0.
func ReadFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// A trailing partial line is picked up on the next read.
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		lines = append(lines, line[:len(line)-1])
	}
	return lines, offset, nil
}

// Follow calls emit for every line appended to path after offset until ctx is
// cancelled. path may be the octowatch.log symlink: inotify would watch the
// link's target, so the file is polled and a pointer swap reopens the new run's
// log from its start.
func Follow(ctx context.Context, path string, offset int64, emit func(string)) error {
	if info, err := os.Stat(path); err != nil || offset < 0 || offset > info.Size() {
		offset = 0
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:      true,
		ReOpen:      true,
		Poll:        true,
		MaxLineSize: maxLineBytes,
		Location:    &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:      log.New(io.Discard, "", 0),
	})
	if err != nil {
		return fmt.Errorf("tail log file: %w", err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return ctx.Err()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Wait()
			}
			if line.Err != nil {
				continue
			}
			emit(line.Text)
		}
	}
}
