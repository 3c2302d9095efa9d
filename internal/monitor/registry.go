// Package monitor keeps one background scoring loop per connected client.
package monitor

import (
	"context"
	"errors"
	"sync"

	"github.com/UnknownOlympus/paddos/internal/models"
)

// ErrSessionNotFound is returned when stopping a session that is not monitoring.
var ErrSessionNotFound = errors.New("monitoring session not found")

// Session is one client's monitoring state. Its mutable fields are guarded by the registry lock.
type Session struct {
	ID          string
	Coordinates models.Coordinates
	CountryCode string

	active      bool
	updateCount int
	cancel      context.CancelFunc
}

// SessionInfo is a point-in-time copy of a session's state.
type SessionInfo struct {
	ID          string
	Coordinates models.Coordinates
	CountryCode string
	Active      bool
	UpdateCount int
}

// Registry is the table of active sessions keyed by connection id.
// One mutex guards every read and write; no method holds it across a scoring call.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// put inserts sess as the active session for its id and returns the session it replaced, if any.
// The replaced session is deactivated.
func (r *Registry) put(sess *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.sessions[sess.ID]
	if prev != nil {
		prev.active = false
	}
	sess.active = true
	r.sessions[sess.ID] = sess

	return prev
}

// remove deactivates and deletes the session stored under id.
func (r *Registry) remove(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	sess.active = false
	delete(r.sessions, id)

	return sess, true
}

// removeAll deactivates and deletes every session.
func (r *Registry) removeAll() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := make([]*Session, 0, len(r.sessions))
	for id, sess := range r.sessions {
		sess.active = false
		delete(r.sessions, id)
		removed = append(removed, sess)
	}

	return removed
}

// isActive reports whether sess is still the live session for its id.
func (r *Registry) isActive(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return sess.active && r.sessions[sess.ID] == sess
}

// recordUpdate increments the update counter if sess is still live.
func (r *Registry) recordUpdate(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !sess.active || r.sessions[sess.ID] != sess {
		return false
	}
	sess.updateCount++

	return true
}

// Get returns a snapshot of the session stored under id.
func (r *Registry) Get(id string) (SessionInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return SessionInfo{}, false
	}

	return SessionInfo{
		ID:          sess.ID,
		Coordinates: sess.Coordinates,
		CountryCode: sess.CountryCode,
		Active:      sess.active,
		UpdateCount: sess.updateCount,
	}, true
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}
