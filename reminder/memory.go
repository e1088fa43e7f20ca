package reminder

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// MEMORY TRANSPORT - Recording implementation (for testing/dev)
// =============================================================================

// Scheduled is one outstanding reminder held by the memory transport.
type Scheduled struct {
	ID      string
	FiresAt time.Time
	Payload Payload
}

// MemoryTransport records requests and cancels in memory. Requesting an
// existing id replaces it, matching real transport semantics.
type MemoryTransport struct {
	mu        sync.Mutex
	scheduled map[string]Scheduled
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{scheduled: make(map[string]Scheduled)}
}

func (m *MemoryTransport) Request(_ context.Context, id string, firesAt time.Time, payload Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduled[id] = Scheduled{ID: id, FiresAt: firesAt, Payload: payload}
	return nil
}

func (m *MemoryTransport) Cancel(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.scheduled, id)
	}
	return nil
}

// Get returns the outstanding reminder for an id, if any.
func (m *MemoryTransport) Get(id string) (Scheduled, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scheduled[id]
	return s, ok
}

// Outstanding returns all currently scheduled reminders.
func (m *MemoryTransport) Outstanding() []Scheduled {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Scheduled, 0, len(m.scheduled))
	for _, s := range m.scheduled {
		out = append(out, s)
	}
	return out
}
