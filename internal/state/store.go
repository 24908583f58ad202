package state

import (
	"sort"
	"sync"
	"time"
)

// Record is the last accepted observation for one printer.
type Record struct {
	Key        string    `json:"key"`
	Printer    string    `json:"printer"`
	Status     string    `json:"status"`
	Completion *float64  `json:"completion,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasCompletion reports whether the record carries a known completion value.
func (r Record) HasCompletion() bool {
	return r.Completion != nil
}

// CompletionEquals reports whether the stored completion is known and equal to value.
func (r Record) CompletionEquals(value float64) bool {
	return r.Completion != nil && *r.Completion == value
}

// Store maps a printer key to its last accepted Record.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]Record), now: time.Now}
}

// Get returns the record stored under key.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if ok {
		rec.Completion = cloneFloat(rec.Completion)
	}
	return rec, ok
}

// Set replaces the record stored under key.
func (s *Store) Set(key string, rec Record) {
	rec.Key = key
	rec.Completion = cloneFloat(rec.Completion)
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make(map[string]Record)
	}
	s.records[key] = rec
}

// Len returns the number of printers with a record.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Snapshot returns a copy of every record sorted by key.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		rec.Completion = cloneFloat(rec.Completion)
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	dup := *v
	return &dup
}
