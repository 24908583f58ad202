package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePrinters(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateCompanion(); err != nil {
		return err
	}
	if err := c.validatePoll(); err != nil {
		return err
	}
	return c.validateState()
}

func (c *Config) validatePrinters() error {
	names := make(map[string]struct{}, len(c.Printers))
	ids := make(map[string]struct{}, len(c.Printers))
	defaults := 0
	for i, p := range c.Printers {
		label := fmt.Sprintf("printers[%d]", i)
		if p.Name == "" {
			return fmt.Errorf("%s.name must be set", label)
		}
		if p.URL == "" {
			return fmt.Errorf("%s.url must be set for printer %q", label, p.Name)
		}
		u, err := url.Parse(p.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s.url must be an http(s) URL, got %q", label, p.URL)
		}
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("%s.id %q is used by more than one printer", label, p.ID)
		}
		ids[p.ID] = struct{}{}
		// Duplicate display names are allowed but collide when key_mode is "name".
		if _, dup := names[p.Name]; dup && c.State.KeyMode != KeyModeID {
			return fmt.Errorf("%s.name %q is duplicated; set state.key_mode = \"id\" to watch both", label, p.Name)
		}
		names[p.Name] = struct{}{}
		if p.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return errors.New("at most one printer may set default = true")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if topic := c.Notifications.NtfyTopic; topic != "" {
		u, err := url.Parse(topic)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("notifications.ntfy_topic must be a full topic URL, got %q", topic)
		}
	}
	if _, err := language.Parse(c.Notifications.Language); err != nil {
		return fmt.Errorf("notifications.language %q: %w", c.Notifications.Language, err)
	}
	return nil
}

func (c *Config) validateCompanion() error {
	if c.Companion.DailyBudget < 0 {
		return errors.New("companion.daily_budget must be >= 0")
	}
	if endpoint := c.Companion.Endpoint; endpoint != "" {
		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("companion.endpoint must be an http(s) URL, got %q", endpoint)
		}
	}
	return nil
}

func (c *Config) validatePoll() error {
	if c.Poll.IntervalSeconds < 0 {
		return errors.New("poll.interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateState() error {
	switch strings.ToLower(c.State.KeyMode) {
	case KeyModeName, KeyModeID:
		return nil
	default:
		return fmt.Errorf("state.key_mode must be %q or %q, got %q", KeyModeName, KeyModeID, c.State.KeyMode)
	}
}
