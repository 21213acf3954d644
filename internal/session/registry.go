package session

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Registry is the single shared structure across all sessions: an atomically
// swapped immutable map of session id to session. Every write replaces the
// whole map through compare-and-swap, so readers always see a consistent
// snapshot and never a partial mutation.
type Registry struct {
	sessions atomic.Pointer[map[string]*Session]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := make(map[string]*Session)
	r.sessions.Store(&empty)
	return r
}

// Get retrieves a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	m := *r.sessions.Load()
	s, ok := m[id]
	return s, ok
}

// Snapshot returns the current id → session map. Callers must not modify it.
func (r *Registry) Snapshot() map[string]*Session {
	return *r.sessions.Load()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return len(*r.sessions.Load())
}

// Update applies fn to a copy of the collection and commits it with
// compare-and-swap, retrying if a concurrent writer got there first.
// fn may return the copy unchanged.
func (r *Registry) Update(fn func(map[string]*Session) map[string]*Session) {
	for {
		old := r.sessions.Load()
		next := make(map[string]*Session, len(*old)+1)
		for id, s := range *old {
			next[id] = s
		}
		next = fn(next)
		if r.sessions.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Insert adds a session; reports false if the id is already taken.
func (r *Registry) Insert(s *Session) bool {
	inserted := false
	r.Update(func(m map[string]*Session) map[string]*Session {
		if _, exists := m[s.ID]; exists {
			return m
		}
		m[s.ID] = s
		inserted = true
		return m
	})
	return inserted
}

// Remove deletes a session by id.
func (r *Registry) Remove(id string) {
	r.Update(func(m map[string]*Session) map[string]*Session {
		delete(m, id)
		return m
	})
}

// Touch republishes the collection and refreshes the session's LastUpdate,
// so a transition committed by a domain queue is also a registry commit.
func (r *Registry) Touch(id string, now time.Time) {
	r.Update(func(m map[string]*Session) map[string]*Session {
		if s, ok := m[id]; ok {
			s.Touched(now)
		}
		return m
	})
}

// NewID generates a 6-character session code clients can type.
func (r *Registry) NewID() string {
	for {
		id := generateCode()
		if _, exists := r.Get(id); !exists {
			return id
		}
	}
}

// generateCode creates a 6-character uppercase alphanumeric code.
func generateCode() string {
	b := make([]byte, 4)
	_, err := rand.Read(b)
	if err != nil {
		// Fallback to timestamp-based
		return fmt.Sprintf("%06X", time.Now().UnixNano()&0xFFFFFF)
	}
	// Use base32 encoding (A-Z, 2-7), take first 6 chars
	code := base32.StdEncoding.EncodeToString(b)[:6]
	return strings.ToUpper(code)
}
