// Package audit keeps a diagnostic trail of applied steps. It is never read
// when planning; the manifest alone decides what changed.
package audit

import (
	"context"
	"sync"
	"time"
)

// Status values recorded for a step.
const (
	StatusApplied = "applied"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Event records the outcome of one plan step.
type Event struct {
	RunID  string    `json:"run_id"`
	NodeID string    `json:"node_id"`
	Kind   string    `json:"kind"`
	Action string    `json:"action"`
	Path   string    `json:"path,omitempty"`
	Hash   string    `json:"hash,omitempty"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// Store persists audit events.
type Store interface {
	Record(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// Filter limits audit event queries.
type Filter struct {
	RunID  string
	NodeID string
	Status string
	Limit  int
}

func (f Filter) match(ev Event) bool {
	if f.RunID != "" && ev.RunID != f.RunID {
		return false
	}
	if f.NodeID != "" && ev.NodeID != f.NodeID {
		return false
	}
	if f.Status != "" && ev.Status != f.Status {
		return false
	}
	return true
}

// MemoryStore keeps audit events in memory.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryStore returns an in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends an audit event.
func (s *MemoryStore) Record(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.At = normalizeTime(event.At)
	s.events = append(s.events, event)
	return nil
}

// List returns filtered audit events in insertion order.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if !filter.match(ev) {
			continue
		}
		out = append(out, ev)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// normalizeTime ensures timestamps are in UTC.
func normalizeTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
