package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"octowatch/internal/config"
	"octowatch/internal/logging"
	"octowatch/internal/testsupport"
)

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "octowatch-1.log")
	second := filepath.Join(dir, "octowatch-2.log")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	target, err := os.Readlink(filepath.Join(dir, logging.LogFileName))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != second {
		t.Fatalf("pointer = %q, want %q", target, second)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := writePIDFile(filepath.Join(dir, PIDFileName)); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := ReadPID(dir)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestAssembleWiresStreamOnlyWithDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithPrinter(config.Printer{Name: "MK3", URL: "http://mk3.local", Default: true}),
		testsupport.WithEnsuredDirectories(),
	)
	cfg.Stream.Enabled = true
	j := testsupport.MustOpenJournal(t, cfg)

	d, err := assemble(cfg, logging.NewNop(), j, "")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !d.Status().StreamEnabled {
		t.Fatal("expected stream for default printer")
	}

	cfg.Printers = nil
	d, err = assemble(cfg, logging.NewNop(), j, "")
	if err != nil {
		t.Fatalf("assemble without printers: %v", err)
	}
	if d.Status().StreamEnabled {
		t.Fatal("expected no stream without a default printer")
	}
}

func TestRunRejectsNilConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error")
	}
}
