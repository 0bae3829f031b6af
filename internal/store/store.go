// Package store caches the latest authoritative session snapshot and fans
// it out to observers. The session service is the sole writer of truth; the
// store never merges, it only replaces.
package store

import (
	"sync"

	"github.com/planc-dev/planc/internal/session"
)

// Observer receives every snapshot replacement. A nil session means the
// client is logged out (session ended, kicked, or never joined).
type Observer func(*session.Session)

// ErrorObserver receives delivery failures reported by the transport.
type ErrorObserver func(error)

// Store holds the current session snapshot, or nil for "no session".
// Snapshots are applied in the order Set is called; delivery to observers is
// serialized by the caller (single event-driven writer).
type Store struct {
	mu        sync.Mutex
	current   *session.Session
	observers []Observer
	errObs    []ErrorObserver
}

// New returns an empty store with no session.
func New() *Store {
	return &Store{}
}

// Current returns the latest snapshot, or nil before the first snapshot and
// after logout.
func (s *Store) Current() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set replaces the current snapshot wholesale and notifies every observer.
// A nil-to-nil replacement is not a transition and is not delivered, so the
// logged-out signal fires exactly once.
func (s *Store) Set(sess *session.Session) {
	s.mu.Lock()
	if sess == nil && s.current == nil {
		s.mu.Unlock()
		return
	}
	s.current = sess
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(sess)
	}
}

// Subscribe registers an observer for every future replacement and
// immediately delivers the current value, so late subscribers are never
// stale.
func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	current := s.current
	s.mu.Unlock()

	fn(current)
}

// OnError registers an observer for delivery failures.
func (s *Store) OnError(fn ErrorObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errObs = append(s.errObs, fn)
}

// ReportError surfaces a transport failure to error observers. The current
// snapshot is left intact; only an explicit Set(nil) ends the session.
func (s *Store) ReportError(err error) {
	s.mu.Lock()
	errObs := append([]ErrorObserver(nil), s.errObs...)
	s.mu.Unlock()

	for _, fn := range errObs {
		fn(err)
	}
}
