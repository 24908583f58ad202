package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"octowatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.AttachmentsDir = filepath.Join(base, "attachments")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Paths.APIToken = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithPrinter appends a printer. The identity URL is derived from the name
// when id is empty, matching config normalization.
func WithPrinter(p config.Printer) ConfigOption {
	return func(b *configBuilder) {
		if p.ID == "" {
			p.ID = config.PrinterID(p.Name)
		}
		b.cfg.Printers = append(b.cfg.Printers, p)
	}
}

// WithNtfyTopic points notifications at topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithCompanionEndpoint points companion updates at endpoint.
func WithCompanionEndpoint(endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Companion.Endpoint = endpoint
	}
}

// WithKeyMode sets state.key_mode.
func WithKeyMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.State.KeyMode = mode
	}
}

// WithAPIToken requires bearer auth on the daemon API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithEnsuredDirectories creates the configured directories.
func WithEnsuredDirectories() ConfigOption {
	return func(b *configBuilder) {
		if err := b.cfg.EnsureDirectories(); err != nil {
			b.t.Fatalf("ensure directories: %v", err)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WriteConfigFile encodes cfg as TOML under the base directory and returns the
// file path.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := config.Encode(*cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
