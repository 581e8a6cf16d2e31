package form

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Store keeps open sessions in memory and expires them after ttl of
// inactivity.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore builds a store. A non-positive ttl disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{ttl: ttl, now: time.Now, sessions: map[string]*Session{}}
}

// WithClock overrides the time source used for expiry.
func (st *Store) WithClock(now func() time.Time) *Store {
	st.now = now
	return st
}

// Put registers s.
func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID()] = s
}

// Get returns the live session with id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok || st.expired(s) {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes the session with id and reports whether it existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

// Len returns the number of stored sessions, expired ones included.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep evicts expired sessions and returns them.
func (st *Store) Sweep() []*Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	var evicted []*Session
	for id, s := range st.sessions {
		if st.expired(s) {
			evicted = append(evicted, s)
			delete(st.sessions, id)
		}
	}
	return evicted
}

func (st *Store) expired(s *Session) bool {
	return st.ttl > 0 && st.now().Sub(s.UpdatedAt()) > st.ttl
}
