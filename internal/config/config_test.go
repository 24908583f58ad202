package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"octowatch/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OCTOWATCH_NTFY_TOPIC", "https://ntfy.example/printers")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "octowatch")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("state dir = %q, want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.AttachmentsDir != filepath.Join(tempHome, ".cache", "octowatch", "attachments") {
		t.Fatalf("unexpected attachments dir: %q", cfg.Paths.AttachmentsDir)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/printers" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Companion.DailyBudget != 50 {
		t.Fatalf("daily budget = %d, want 50", cfg.Companion.DailyBudget)
	}
	if cfg.State.KeyMode != config.KeyModeName {
		t.Fatalf("key mode = %q, want name", cfg.State.KeyMode)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.AttachmentsDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadPrintersAssignsIdentityURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[[printers]]
name = "  Prusa MK4 "
url = "http://octopi.local/"
api_key = "abc"
default = true

[[printers]]
id = "octowatch://printer/custom"
name = "Voron"
url = "https://voron.lan"
push_capable = true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config to exist")
	}
	if len(cfg.Printers) != 2 {
		t.Fatalf("printers = %d, want 2", len(cfg.Printers))
	}
	first := cfg.Printers[0]
	if first.Name != "Prusa MK4" || first.URL != "http://octopi.local" {
		t.Fatalf("printer not normalized: %+v", first)
	}
	if first.ID != "octowatch://printer/prusa-mk4" {
		t.Fatalf("derived id = %q", first.ID)
	}
	if cfg.Printers[1].ID != "octowatch://printer/custom" || !cfg.Printers[1].PushCapable {
		t.Fatalf("second printer = %+v", cfg.Printers[1])
	}
	def, ok := cfg.DefaultPrinter()
	if !ok || def.Name != "Prusa MK4" {
		t.Fatalf("default printer = %+v, %v", def, ok)
	}

	printers, err := config.LoadPrinters(path)
	if err != nil {
		t.Fatalf("LoadPrinters returned error: %v", err)
	}
	if len(printers) != 2 {
		t.Fatalf("LoadPrinters = %d printers, want 2", len(printers))
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name: "missing url",
			mutate: func(c *config.Config) {
				c.Printers = []config.Printer{{Name: "A", ID: "x"}}
			},
			wantErr: "url must be set",
		},
		{
			name: "duplicate names keyed by name",
			mutate: func(c *config.Config) {
				c.Printers = []config.Printer{
					{Name: "A", ID: "a1", URL: "http://a1"},
					{Name: "A", ID: "a2", URL: "http://a2"},
				}
			},
			wantErr: "duplicated",
		},
		{
			name: "two defaults",
			mutate: func(c *config.Config) {
				c.Printers = []config.Printer{
					{Name: "A", ID: "a", URL: "http://a", Default: true},
					{Name: "B", ID: "b", URL: "http://b", Default: true},
				}
			},
			wantErr: "at most one printer",
		},
		{
			name:    "bad key mode",
			mutate:  func(c *config.Config) { c.State.KeyMode = "serial" },
			wantErr: "state.key_mode",
		},
		{
			name:    "negative budget",
			mutate:  func(c *config.Config) { c.Companion.DailyBudget = -1 },
			wantErr: "companion.daily_budget",
		},
		{
			name:    "bad language",
			mutate:  func(c *config.Config) { c.Notifications.Language = "not a language!" },
			wantErr: "notifications.language",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateAllowsDuplicateNamesWhenKeyedByID(t *testing.T) {
	cfg := config.Default()
	cfg.State.KeyMode = config.KeyModeID
	cfg.Printers = []config.Printer{
		{Name: "A", ID: "a1", URL: "http://a1"},
		{Name: "A", ID: "a2", URL: "http://a2"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed map[string]any
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(sample) returned error: %v", err)
	}
	if len(cfg.Printers) != 1 || !cfg.Printers[0].Default {
		t.Fatalf("unexpected sample printers: %+v", cfg.Printers)
	}
}

func TestRedactedMasksCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.APIToken = "secret"
	cfg.Printers = []config.Printer{{Name: "A", APIKey: "key", Password: "pw"}}

	redacted := cfg.Redacted()
	if redacted.Paths.APIToken == "secret" || redacted.Printers[0].APIKey == "key" || redacted.Printers[0].Password == "pw" {
		t.Fatalf("credentials not masked: %+v", redacted)
	}
	if cfg.Printers[0].APIKey != "key" {
		t.Fatal("Redacted must not mutate the original config")
	}

	out, err := config.Encode(redacted)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if strings.Contains(out, "secret") {
		t.Fatalf("encoded config leaks token: %s", out)
	}
}

func TestAPIBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.APIBind = ":7490"
	if got := cfg.APIBaseURL(); got != "http://127.0.0.1:7490" {
		t.Fatalf("APIBaseURL = %q", got)
	}
}
