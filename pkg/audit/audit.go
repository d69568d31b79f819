// Package audit persists a record of every capability invocation an agent
// loop makes: which session asked for it, the arguments the model supplied,
// the payload handed back, and how long the handler took. The trail is what
// lets an operator reconstruct how an ontology ended up in its final shape.
package audit

import (
	"context"
	"sync"
	"time"
)

// Invocation is one capability call as seen by the loop.
type Invocation struct {
	SessionID  string        `json:"session_id"`
	RunID      string        `json:"run_id"`
	Iteration  int           `json:"iteration"`
	Capability string        `json:"capability"`
	CallID     string        `json:"call_id,omitempty"`
	Arguments  string        `json:"arguments,omitempty"`
	Outcome    string        `json:"outcome,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// Recorder accepts invocation records. The loop only needs this side.
type Recorder interface {
	Record(ctx context.Context, inv Invocation) error
}

// Store is a Recorder whose records can be read back.
type Store interface {
	Recorder
	List(ctx context.Context, filter Filter) ([]Invocation, error)
}

// Filter limits invocation queries.
type Filter struct {
	SessionID  string
	Capability string
	// FailedOnly selects invocations whose capability reported an error.
	FailedOnly bool
	Limit      int
}

// NopRecorder discards every record. Used when auditing is disabled.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Invocation) error { return nil }

// MemoryStore keeps invocations in memory.
type MemoryStore struct {
	mu          sync.Mutex
	invocations []Invocation
}

// NewMemoryStore returns an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends an invocation.
func (s *MemoryStore) Record(_ context.Context, inv Invocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invocations = append(s.invocations, inv)
	return nil
}

// List returns filtered invocations in recording order.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Invocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Invocation, 0, len(s.invocations))
	for _, inv := range s.invocations {
		if filter.SessionID != "" && inv.SessionID != filter.SessionID {
			continue
		}
		if filter.Capability != "" && inv.Capability != filter.Capability {
			continue
		}
		if filter.FailedOnly && inv.Error == "" {
			continue
		}
		out = append(out, inv)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// normalizeTime ensures timestamps are stored in UTC.
func normalizeTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
