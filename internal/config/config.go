package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir       string `toml:"state_dir"`
	LogDir         string `toml:"log_dir"`
	AttachmentsDir string `toml:"attachments_dir"`
	APIBind        string `toml:"api_bind"`
	APIToken       string `toml:"api_token"`
}

// Printer describes one OctoPrint server. PushCapable marks servers running the
// OctoPod plugin, which deliver realtime pushes and make polling unnecessary.
type Printer struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	URL         string `toml:"url"`
	APIKey      string `toml:"api_key"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	PushCapable bool   `toml:"push_capable"`
	Default     bool   `toml:"default"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	ImageTimeout   int    `toml:"image_timeout"`
	Language       string `toml:"language"`
}

// Companion configures the companion display webhook and its daily budget.
type Companion struct {
	Endpoint       string `toml:"endpoint"`
	DailyBudget    int    `toml:"daily_budget"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Poll configures the background fallback poll.
type Poll struct {
	IntervalSeconds int `toml:"interval_seconds"`
	RequestTimeout  int `toml:"request_timeout"`
}

// Stream configures the OctoPrint websocket feed for the default printer.
type Stream struct {
	Enabled           bool `toml:"enabled"`
	MaxBackoffSeconds int  `toml:"max_backoff_seconds"`
}

// State configures how printer state records are keyed.
type State struct {
	KeyMode string `toml:"key_mode"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for octowatch.
//
// Configuration sections by subsystem:
//   - Paths: state, log and attachment directories plus API bind address
//   - Printers: the OctoPrint servers to watch
//   - Notifications: ntfy delivery of "Print complete" notifications
//   - Companion: companion display webhook and daily update budget
//   - Poll: fallback poll cadence for servers without push support
//   - Stream: live websocket feed for the default printer
//   - State: state record keying
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Printers      []Printer     `toml:"printers"`
	Notifications Notifications `toml:"notifications"`
	Companion     Companion     `toml:"companion"`
	Poll          Poll          `toml:"poll"`
	Stream        Stream        `toml:"stream"`
	State         State         `toml:"state"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded. It also reports the resolved path and whether
// the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// LoadPrinters re-reads only the printer list from path. The registry watcher
// uses it to pick up edits without restarting the daemon.
func LoadPrinters(path string) ([]Printer, error) {
	cfg, _, exists, err := Load(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("config %s: %w", path, fs.ErrNotExist)
	}
	return cfg.Printers, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("octowatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.AttachmentsDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DefaultPrinter returns the printer flagged default, or the only configured
// printer when exactly one exists.
func (c *Config) DefaultPrinter() (Printer, bool) {
	for _, p := range c.Printers {
		if p.Default {
			return p, true
		}
	}
	if len(c.Printers) == 1 {
		return c.Printers[0], true
	}
	return Printer{}, false
}

// APIBaseURL returns the http URL the CLI uses to reach the daemon API.
func (c *Config) APIBaseURL() string {
	bind := strings.TrimSpace(c.Paths.APIBind)
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	return "http://" + bind
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Redacted returns a copy of the config with credentials masked, suitable for
// printing.
func (c *Config) Redacted() Config {
	out := *c
	out.Paths.APIToken = mask(out.Paths.APIToken)
	out.Printers = make([]Printer, len(c.Printers))
	for i, p := range c.Printers {
		p.APIKey = mask(p.APIKey)
		p.Password = mask(p.Password)
		out.Printers[i] = p
	}
	return out
}

// Encode renders cfg as TOML.
func Encode(cfg Config) (string, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func mask(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return "********"
}
