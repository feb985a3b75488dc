// internal/billing/registry.go
package billing

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type registryEntry struct {
	session   *Session
	expiresAt time.Time
}

// SessionRegistry keeps preview sessions addressable by id for a limited time.
type SessionRegistry struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[uuid.UUID]registryEntry
	now   func() time.Time
}

func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{ttl: ttl, items: make(map[uuid.UUID]registryEntry), now: time.Now}
}

// Put stores s and drops expired sessions.
func (r *SessionRegistry) Put(s *Session) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.items {
		if now.After(e.expiresAt) {
			delete(r.items, id)
		}
	}
	r.items[s.ID] = registryEntry{session: s, expiresAt: now.Add(r.ttl)}
}

// Get returns a live session and extends its lifetime.
func (r *SessionRegistry) Get(id uuid.UUID) (*Session, bool) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return nil, false
	}
	if now.After(e.expiresAt) {
		delete(r.items, id)
		return nil, false
	}
	e.expiresAt = now.Add(r.ttl)
	r.items[id] = e
	return e.session, true
}

func (r *SessionRegistry) Delete(id uuid.UUID) {
	r.mu.Lock()
	delete(r.items, id)
	r.mu.Unlock()
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
