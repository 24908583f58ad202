package printers

import (
	"strings"
	"sync"

	"octowatch/internal/config"
)

// Printer is one OctoPrint server. Credentials never leave the process in JSON.
type Printer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	APIKey      string `json:"-"`
	Username    string `json:"-"`
	Password    string `json:"-"`
	PushCapable bool   `json:"push_capable"`
	Default     bool   `json:"default"`
}

// HasBasicAuth reports whether HTTP basic credentials are configured.
func (p Printer) HasBasicAuth() bool {
	return p.Username != "" && p.Password != ""
}

// FromConfig converts configured printers into registry entries.
func FromConfig(list []config.Printer) []Printer {
	out := make([]Printer, 0, len(list))
	for _, p := range list {
		out = append(out, Printer{
			ID:          p.ID,
			Name:        p.Name,
			URL:         p.URL,
			APIKey:      p.APIKey,
			Username:    p.Username,
			Password:    p.Password,
			PushCapable: p.PushCapable,
			Default:     p.Default,
		})
	}
	return out
}

// Registry is a concurrency-safe printer lookup.
type Registry struct {
	mu       sync.RWMutex
	printers []Printer
}

// NewRegistry builds a registry over list.
func NewRegistry(list []Printer) *Registry {
	r := &Registry{}
	r.Replace(list)
	return r
}

// Replace swaps the registry contents.
func (r *Registry) Replace(list []Printer) {
	dup := make([]Printer, len(list))
	copy(dup, list)
	r.mu.Lock()
	r.printers = dup
	r.mu.Unlock()
}

// All returns a copy of every printer in configuration order.
func (r *Registry) All() []Printer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Printer, len(r.printers))
	copy(out, r.printers)
	return out
}

// Resolve finds the printer an identity refers to. The identity URL wins over
// a display-name match.
func (r *Registry) Resolve(identity string) (Printer, bool) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return Printer{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.printers {
		if p.ID == identity {
			return p, true
		}
	}
	for _, p := range r.printers {
		if p.Name == identity {
			return p, true
		}
	}
	return Printer{}, false
}

// Default returns the printer flagged default, or the only printer.
func (r *Registry) Default() (Printer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.printers {
		if p.Default {
			return p, true
		}
	}
	if len(r.printers) == 1 {
		return r.printers[0], true
	}
	return Printer{}, false
}
