// Package session holds all working dashboard state in memory. Nothing
// here is persisted: a session is rebuilt from the station workbook on
// every station or week change and vanishes on logout or expiry.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the in-memory session registry. Keys are uuids handed to the
// browser as a cookie; expired sessions are evicted on access.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session

	now func() time.Time
}

// NewStore creates a store whose sessions live for ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create registers a new session and returns it.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{
		Key:       uuid.New().String(),
		ExpiresAt: s.now().Add(s.ttl),
	}
	sess.state.Currency = "AED"
	s.sessions[sess.Key] = sess
	return sess
}

// Get looks a session up by key. Expired sessions are deleted and
// reported as absent.
func (s *Store) Get(key string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, false
	}
	if s.now().After(sess.ExpiresAt) {
		delete(s.sessions, key)
		return nil, false
	}
	return sess, true
}

// Delete removes a session, if present.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Len reports the number of live sessions (expired ones included until
// their next access).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Session is one authenticated dashboard. State access goes through Do
// so a session is never mutated concurrently.
type Session struct {
	Key       string
	ExpiresAt time.Time

	mu    sync.Mutex
	state State
}

// Do runs fn with exclusive access to the session's state.
func (s *Session) Do(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}
