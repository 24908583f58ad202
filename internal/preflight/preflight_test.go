package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"octowatch/internal/config"
	"octowatch/internal/octoprint"
	"octowatch/internal/printers"
	"octowatch/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("vol", dir, 1); !result.Passed {
		t.Fatalf("expected pass with 1 byte minimum, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("vol", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure with impossible minimum")
	}
	if result := CheckFreeSpace("vol", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckPrinter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "good-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"state":"Operational"}`))
	}))
	defer srv.Close()

	client := octoprint.NewClient(time.Second)
	ok := CheckPrinter(context.Background(), client, printers.Printer{Name: "MK4", URL: srv.URL, APIKey: "good-key"})
	if !ok.Passed || !strings.Contains(ok.Detail, "Operational") {
		t.Fatalf("expected pass, got: %+v", ok)
	}

	bad := CheckPrinter(context.Background(), client, printers.Printer{Name: "MK4", URL: srv.URL, APIKey: "bad"})
	if bad.Passed || !strings.Contains(bad.Detail, "auth failed") {
		t.Fatalf("expected auth failure, got: %+v", bad)
	}
}

func TestRunAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithPrinter(config.Printer{Name: "MK4", URL: srv.URL}),
		testsupport.WithEnsuredDirectories(),
	)
	results := RunAll(context.Background(), cfg, octoprint.NewClient(time.Second))
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Printer MK4" || !strings.Contains(failed[0].Detail, "500") {
		t.Fatalf("expected only the printer check to fail, got %+v", failed)
	}
}

func TestRunLocalReportsMissingDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if failed := Failed(RunLocal(cfg)); len(failed) != 4 {
		t.Fatalf("expected all local checks to fail before directories exist, got %+v", failed)
	}
}
