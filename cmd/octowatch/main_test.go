package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"octowatch/internal/api"
	"octowatch/internal/config"
	"octowatch/internal/journal"
	"octowatch/internal/testsupport"
)

// fakeDaemon serves the subset of the daemon API the CLI calls.
type fakeDaemon struct {
	mu     sync.Mutex
	pushes []map[string]any
	auth   string
}

func (f *fakeDaemon) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		f.capture(r)
		_ = json.NewEncoder(w).Encode(api.DaemonStatus{Running: true, PID: 42, Printers: 1, LastPoll: "2026-01-02T03:04:05.000Z", LastOutcome: "newData"})
	})
	mux.HandleFunc("GET /api/state", func(w http.ResponseWriter, r *http.Request) {
		pct := 55.5
		_ = json.NewEncoder(w).Encode(api.StateResponse{Records: []api.StateRecord{{Key: "MK3", Printer: "MK3", Status: "Printing", Completion: &pct}}})
	})
	mux.HandleFunc("GET /api/printers", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.PrintersResponse{Printers: []api.PrinterInfo{{ID: "octowatch://printer/mk3", Name: "MK3", URL: "http://mk3.local", Default: true}}})
	})
	mux.HandleFunc("POST /api/push", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.pushes = append(f.pushes, body)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(api.OutcomeResponse{Outcome: "newData"})
	})
	mux.HandleFunc("POST /api/poll", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.OutcomeResponse{Outcome: "noData"})
	})
	mux.HandleFunc("POST /api/test-notification", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.TestNotificationResponse{Sent: true, Message: "test notification sent"})
	})
	return mux
}

func (f *fakeDaemon) capture(r *http.Request) {
	f.mu.Lock()
	f.auth = r.Header.Get("Authorization")
	f.mu.Unlock()
}

func (f *fakeDaemon) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth
}

func (f *fakeDaemon) receivedPushes() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.pushes...)
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	daemon     *fakeDaemon
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	fake := &fakeDaemon{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	opts = append([]testsupport.ConfigOption{
		testsupport.WithPrinter(config.Printer{Name: "MK3", URL: "http://mk3.local", APIKey: "k", Default: true}),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Paths.APIBind = strings.TrimPrefix(srv.URL, "http://")
	return &cliTestEnv{cfg: cfg, configPath: testsupport.WriteConfigFile(t, cfg), daemon: fake}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatusRendersDaemonAndRecords(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAPIToken("tok"))

	out, err := runCLI(t, "-c", env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	for _, want := range []string{"Running", "pid 42", "MK3", "Printing", "55.5%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
	if got := env.daemon.lastAuth(); got != "Bearer tok" {
		t.Fatalf("authorization = %q", got)
	}
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, "-c", env.configPath, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var decoded statusOutput
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !decoded.Daemon.Running || len(decoded.Records) != 1 {
		t.Fatalf("unexpected status: %+v", decoded)
	}
}

func TestPushBuildsPayloadFromFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, "-c", env.configPath, "push",
		"--printer", "octowatch://printer/mk3", "--state", "Operational", "--completion", "100", "--test")
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if !strings.Contains(out, "newData") {
		t.Fatalf("unexpected output: %s", out)
	}
	pushes := env.daemon.receivedPushes()
	if len(pushes) != 1 {
		t.Fatalf("pushes = %d", len(pushes))
	}
	got := pushes[0]
	if got["printer_id"] != "octowatch://printer/mk3" || got["printer_state"] != "Operational" || got["progress_completion"] != 100.0 || got["test"] != true {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestPushRequiresPrinter(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := runCLI(t, "-c", env.configPath, "push", "--state", "Printing"); err == nil {
		t.Fatal("expected error without --printer")
	}
}

func TestPushFromFile(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(path, []byte(`{"printer-id":"octowatch://printer/mk3","printer-state":"Printing"}`), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	if _, err := runCLI(t, "-c", env.configPath, "push", "--file", path); err != nil {
		t.Fatalf("push: %v", err)
	}
	pushes := env.daemon.receivedPushes()
	if len(pushes) != 1 || pushes[0]["printer-id"] != "octowatch://printer/mk3" {
		t.Fatalf("payload not forwarded verbatim: %+v", pushes)
	}
}

func TestPollAndTestNotify(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, "-c", env.configPath, "poll")
	if err != nil || !strings.Contains(out, "noData") {
		t.Fatalf("poll: %v %s", err, out)
	}
	out, err = runCLI(t, "-c", env.configPath, "test-notify")
	if err != nil || !strings.Contains(out, "test notification sent") {
		t.Fatalf("test-notify: %v %s", err, out)
	}
}

func TestPrintersLocalReadsConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, "-c", env.configPath, "printers", "--local", "--json")
	if err != nil {
		t.Fatalf("printers: %v", err)
	}
	var resp api.PrintersResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Printers) != 1 || resp.Printers[0].Name != "MK3" {
		t.Fatalf("unexpected printers: %+v", resp.Printers)
	}
	if strings.Contains(out, `"k"`) {
		t.Fatalf("api key leaked: %s", out)
	}
}

func TestHistoryReadsJournal(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithEnsuredDirectories())
	j := testsupport.MustOpenJournal(t, env.cfg)
	pct := 100.0
	if _, err := j.Append(context.Background(), journal.Entry{Printer: "MK3", Kind: journal.KindNotify, Status: "Operational", Completion: &pct, Source: "poll", Delivered: true}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := j.Append(context.Background(), journal.Entry{Printer: "MK3", Kind: journal.KindCompanion, Status: "Printing"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	out, err := runCLI(t, "-c", env.configPath, "history", "--kind", "notify", "--json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []journal.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Kind != journal.KindNotify {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	if _, err := runCLI(t, "-c", env.configPath, "history", "--kind", "bogus"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestDoctorOfflinePasses(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithEnsuredDirectories())

	out, err := runCLI(t, "-c", env.configPath, "doctor", "--offline")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	if !strings.Contains(out, "State directory") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestConfigInitShowAndValidate(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OCTOWATCH_NTFY_TOPIC", "")
	target := filepath.Join(home, "octowatch.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists")
	}

	out, err = runCLI(t, "-c", target, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "REPLACE_ME") || !strings.Contains(out, "********") {
		t.Fatalf("credentials not masked:\n%s", out)
	}

	out, err = runCLI(t, "-c", target, "config", "validate")
	if err != nil || !strings.Contains(out, "Configuration valid") {
		t.Fatalf("config validate: %v %s", err, out)
	}
}

func TestBuildPushPayloadRejectsBadCompletion(t *testing.T) {
	if _, err := buildPushPayload(pushFlags{printer: "p", completion: "half"}, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLogsPrintsTail(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithEnsuredDirectories())
	path := filepath.Join(env.cfg.Paths.LogDir, "octowatch.log")
	if err := os.WriteFile(path, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := runCLI(t, "-c", env.configPath, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "second\nthird\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestStopReportsNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:1"
	path := testsupport.WriteConfigFile(t, cfg)

	out, err := runCLI(t, "-c", path, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "not running") {
		t.Fatalf("unexpected output: %s", out)
	}
}
