// internal/audit/memory.go
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps the journal in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, e Event) (int64, error) {
	if e.Version < 1 {
		return 0, ErrInvalidVersion
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.versionLocked(e.AggregateID) != e.Version-1 {
		return 0, ErrConcurrencyConflict
	}
	m.nextID++
	e.ID = m.nextID
	e.CreatedAt = time.Now().UTC()
	m.events = append(m.events, e)
	return e.ID, nil
}

func (m *MemoryStore) Version(_ context.Context, aggregateID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versionLocked(aggregateID), nil
}

func (m *MemoryStore) History(_ context.Context, aggregateID uuid.UUID) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Event
	for _, e := range m.events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) Since(_ context.Context, after int64, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Event
	for _, e := range m.events {
		if e.ID > after {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) versionLocked(aggregateID uuid.UUID) int {
	v := 0
	for _, e := range m.events {
		if e.AggregateID == aggregateID && e.Version > v {
			v = e.Version
		}
	}
	return v
}
