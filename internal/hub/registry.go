package hub

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/planc-dev/planc/internal/deck"
	"github.com/planc-dev/planc/internal/events"
)

// RegistryConfig caps the service.
type RegistryConfig struct {
	MaxSessions int
	MaxUsers    int
}

// DefaultRegistryConfig mirrors the service's stock limits.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		MaxSessions: 8,
		MaxUsers:    16,
	}
}

// Registry tracks live sessions by id. Sessions are created on first join
// and torn down when the last connection releases them.
type Registry struct {
	config RegistryConfig
	deck   *deck.Deck
	events events.Publisher

	mu       sync.Mutex
	sessions map[string]*Session
	refs     map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry(config RegistryConfig, d *deck.Deck, pub events.Publisher) *Registry {
	return &Registry{
		config:   config,
		deck:     d,
		events:   pub,
		sessions: make(map[string]*Session),
		refs:     make(map[string]int),
	}
}

// Acquire returns the session with the given id, creating it if needed, and
// pins it for one connection. Every successful Acquire must be paired with a
// Release.
func (r *Registry) Acquire(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		if len(r.sessions) >= r.config.MaxSessions {
			return nil, ErrMaxSessionsExceeded
		}
		sess = newSession(id, Limits{MaxUsers: r.config.MaxUsers}, r.deck, r.events)
		r.sessions[id] = sess
		r.publishLocked(events.EventTypeSessionCreated, id)
	}
	r.refs[id]++
	return sess, nil
}

// Release unpins a session. The last release removes it.
func (r *Registry) Release(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := sess.ID()
	if r.refs[id] <= 1 {
		delete(r.refs, id)
		delete(r.sessions, id)
		log.Info().Str("session_id", id).Msg("removing session")
		r.publishLocked(events.EventTypeSessionClosed, id)
		return
	}
	r.refs[id]--
}

// Stats reports the number of connections per live session.
func (r *Registry) Stats() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make(map[string]int, len(r.refs))
	for id, refs := range r.refs {
		stats[id] = refs
	}
	return stats
}

func (r *Registry) publishLocked(eventType events.EventType, sessionID string) {
	if err := r.events.Publish(events.NewEvent(eventType, sessionID, "")); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to publish lifecycle event")
	}
}
