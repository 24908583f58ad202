package config

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePrinters()
	c.normalizeNotifications()
	c.normalizeCompanion()
	c.normalizePoll()
	c.normalizeState()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AttachmentsDir) == "" {
		c.Paths.AttachmentsDir = defaultAttachmentsDir
	}
	if c.Paths.AttachmentsDir, err = expandPath(c.Paths.AttachmentsDir); err != nil {
		return fmt.Errorf("paths.attachments_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv(envAPIToken); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizePrinters() {
	for i := range c.Printers {
		p := &c.Printers[i]
		p.Name = strings.TrimSpace(p.Name)
		p.URL = strings.TrimRight(strings.TrimSpace(p.URL), "/")
		p.APIKey = strings.TrimSpace(p.APIKey)
		p.Username = strings.TrimSpace(p.Username)
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" && p.Name != "" {
			p.ID = PrinterID(p.Name)
		}
	}
}

// PrinterID derives the default identity URL for a printer display name.
func PrinterID(name string) string {
	return defaultPrinterIDScheme + slug(name)
}

func slug(value string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(envNtfyTopic); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	if c.Notifications.ImageTimeout <= 0 {
		c.Notifications.ImageTimeout = defaultImageTimeout
	}
	c.Notifications.Language = strings.TrimSpace(c.Notifications.Language)
	if c.Notifications.Language == "" {
		c.Notifications.Language = defaultNotifyLanguage
	}
}

func (c *Config) normalizeCompanion() {
	c.Companion.Endpoint = strings.TrimSpace(c.Companion.Endpoint)
	if c.Companion.DailyBudget == 0 {
		c.Companion.DailyBudget = defaultCompanionBudget
	}
	if c.Companion.RequestTimeout <= 0 {
		c.Companion.RequestTimeout = defaultCompanionTimeout
	}
}

func (c *Config) normalizePoll() {
	if c.Poll.IntervalSeconds == 0 {
		c.Poll.IntervalSeconds = defaultPollInterval
	}
	if c.Poll.RequestTimeout <= 0 {
		c.Poll.RequestTimeout = defaultPollTimeout
	}
	if c.Stream.MaxBackoffSeconds <= 0 {
		c.Stream.MaxBackoffSeconds = defaultStreamMaxBackoff
	}
}

func (c *Config) normalizeState() {
	c.State.KeyMode = strings.ToLower(strings.TrimSpace(c.State.KeyMode))
	if c.State.KeyMode == "" {
		c.State.KeyMode = KeyModeName
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
