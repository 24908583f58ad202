package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and name pattern to prune. When
// Directories is set, matching subdirectories are removed recursively instead
// of plain files (used for notification attachment folders).
type RetentionTarget struct {
	Dir         string
	Pattern     string
	Exclude     []string
	Directories bool
}

// CleanupOldLogs removes entries matching the provided targets that are older
// than retentionDays. A retentionDays value of 0 disables pruning. It returns
// the number of entries removed.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	exclusions := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			if trimmed := strings.TrimSpace(path); trimmed != "" {
				if abs, err := filepath.Abs(trimmed); err == nil {
					exclusions[abs] = struct{}{}
				}
			}
		}
	}

	removed := 0
	for _, target := range targets {
		dir := strings.TrimSpace(target.Dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() != target.Directories {
				continue
			}
			name := entry.Name()
			if pat := strings.TrimSpace(target.Pattern); pat != "" {
				matched, err := filepath.Match(pat, name)
				if err != nil || !matched {
					continue
				}
			}
			fullPath := filepath.Join(dir, name)
			if abs, err := filepath.Abs(fullPath); err == nil {
				fullPath = abs
			}
			if _, skip := exclusions[fullPath]; skip {
				continue
			}
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.RemoveAll(fullPath); err != nil {
				WarnWithContext(logger, "retention remove failed; entry remains", "retention_remove_failed",
					String("path", fullPath),
					Error(err),
					String(FieldErrorHint, "check file permissions and directory ownership"),
					String(FieldImpact, "old file remains on disk"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Debug("pruned expired entry",
					String("path", fullPath),
					String(FieldEventType, "retention_pruned"),
				)
			}
		}
	}
	return removed
}
