// Package events publishes session lifecycle events to NATS JetStream for
// external consumers (dashboards, audit). Publishing is best-effort and
// never blocks session handling.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventTypeSessionCreated EventType = "SessionCreated"
	EventTypeSessionClosed  EventType = "SessionClosed"
	EventTypeUserJoined     EventType = "UserJoined"
	EventTypeUserLeft       EventType = "UserLeft"
)

// Event is one session lifecycle occurrence.
type Event struct {
	ID        uuid.UUID `json:"eventId"`
	Type      EventType `json:"eventType"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(eventType EventType, sessionID, userID string) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		SessionID: sessionID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher delivers lifecycle events.
type Publisher interface {
	Publish(event Event) error
	Close() error
}

// NopPublisher discards every event. Used when no NATS URL is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
