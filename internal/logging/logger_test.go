package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"octowatch/internal/logging"
)

func newFileLogger(t *testing.T) (string, func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "octowatch.log")
	return path, func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log file: %v", err)
		}
		return string(data)
	}
}

func TestConsoleLoggerPromotesComponentAndPrinter(t *testing.T) {
	path, read := newFileLogger(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "reconcile").Info("status changed",
		logging.String(logging.FieldPrinter, "Ender 3"),
		logging.String(logging.FieldStatus, "Printing"),
	)

	content := read()
	if !strings.Contains(content, "INFO reconcile[Ender 3]: status changed") {
		t.Fatalf("expected promoted subject, got %q", content)
	}
	if !strings.Contains(content, "status=Printing") {
		t.Fatalf("expected status attribute, got %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	path, read := newFileLogger(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")
	if !strings.Contains(read(), "logger_test.go:") {
		t.Fatal("expected caller information in debug logs")
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	path, read := newFileLogger(t)
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("poll failed", logging.Completion(nil))

	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &line); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if line["level"] != "warn" {
		t.Fatalf("level = %v, want warn", line["level"])
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("expected ts key in %v", line)
	}
	if line[logging.FieldCompletion] != "unknown" {
		t.Fatalf("completion = %v, want unknown", line[logging.FieldCompletion])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsSourceAndCorrelation(t *testing.T) {
	path, read := newFileLogger(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithSource(logging.WithRequestID(context.Background(), "req-1"), "push")
	logging.WithContext(ctx, logger).Info("push received")

	content := read()
	if !strings.Contains(content, "source=push") || !strings.Contains(content, "correlation_id=req-1") {
		t.Fatalf("expected context fields, got %q", content)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	path, read := newFileLogger(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "attachment skipped", "attachment_failed",
		logging.String(logging.FieldImpact, "notification sent without image"))

	content := read()
	for _, want := range []string{"event_type=attachment_failed", "error_hint=", `impact="notification sent without image"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
}

func TestCleanupOldLogsPrunesFilesAndDirectories(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().AddDate(0, 0, -10)

	oldLog := filepath.Join(dir, "octowatch-old.log")
	freshLog := filepath.Join(dir, "octowatch-new.log")
	oldAttachment := filepath.Join(dir, "attachments", "a1")
	for _, p := range []string{oldLog, freshLog} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	if err := os.MkdirAll(oldAttachment, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Chtimes(oldLog, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(oldAttachment, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 7,
		logging.RetentionTarget{Dir: dir, Pattern: "octowatch-*.log"},
		logging.RetentionTarget{Dir: filepath.Join(dir, "attachments"), Directories: true},
	)
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, err := os.Stat(oldLog); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err = %v", err)
	}
	if _, err := os.Stat(freshLog); err != nil {
		t.Fatalf("expected fresh log kept: %v", err)
	}
	if _, err := os.Stat(oldAttachment); !os.IsNotExist(err) {
		t.Fatalf("expected old attachment dir removed, stat err = %v", err)
	}
}
