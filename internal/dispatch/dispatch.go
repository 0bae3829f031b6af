// Package dispatch validates and forwards user intents to the session
// service. Commands are fire-and-forget: their effect arrives later as a new
// snapshot through the store. Authorization is the service's job; the
// dispatcher only checks message shape.
package dispatch

import (
	"errors"
	"fmt"
	"sync"
)

const maxTokenLen = 8

// ErrEmptyToken is returned when SetPoints is invoked without a card token.
var ErrEmptyToken = errors.New("empty card token")

// ErrEmptyUserID is returned when KickUser is invoked without a user id.
var ErrEmptyUserID = errors.New("empty user id")

// Service accepts the five session commands. Implemented by the websocket
// session client.
type Service interface {
	SetPoints(points string) error
	ResetPoints() error
	ClaimSession() error
	KickUser(userID string) error
	SetSpectator(spectator bool) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithToggle makes re-picking the currently selected card clear the vote
// instead of re-submitting it. Whether picks toggle is a UI policy, so it is
// off by default.
func WithToggle() Option {
	return func(d *Dispatcher) { d.toggle = true }
}

// Dispatcher forwards commands to the session service. It keeps a thin local
// echo of the just-submitted vote and spectator flag for immediate UI
// feedback; the next authoritative snapshot supersedes it.
type Dispatcher struct {
	svc    Service
	toggle bool

	mu        sync.Mutex
	points    *string
	spectator bool
}

// New returns a dispatcher bound to a session service.
func New(svc Service, opts ...Option) *Dispatcher {
	d := &Dispatcher{svc: svc}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetPoints requests this client's own vote be set. With toggling enabled,
// submitting the currently echoed value clears the vote instead (an empty
// token means "clear" to the service).
func (d *Dispatcher) SetPoints(points string) error {
	if points == "" {
		return ErrEmptyToken
	}
	if len(points) > maxTokenLen {
		return fmt.Errorf("card token %q exceeds %d bytes", points, maxTokenLen)
	}

	d.mu.Lock()
	clearing := d.toggle && d.points != nil && *d.points == points
	d.mu.Unlock()

	if clearing {
		if err := d.svc.SetPoints(""); err != nil {
			return err
		}
		d.mu.Lock()
		d.points = nil
		d.mu.Unlock()
		return nil
	}

	if err := d.svc.SetPoints(points); err != nil {
		return err
	}
	d.mu.Lock()
	d.points = &points
	d.mu.Unlock()
	return nil
}

// ResetPoints requests all votes be cleared. Admin-only by convention; the
// service enforces it.
func (d *Dispatcher) ResetPoints() error {
	return d.svc.ResetPoints()
}

// ClaimSession requests this client become admin. Losing a claim race is not
// an error here: the loser simply observes a snapshot with a different
// admin.
func (d *Dispatcher) ClaimSession() error {
	return d.svc.ClaimSession()
}

// KickUser requests removal of another user. Admin-only by convention.
func (d *Dispatcher) KickUser(userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	return d.svc.KickUser(userID)
}

// SetSpectator requests this client's spectator flag be set. Becoming a
// spectator clears the vote echo, matching the service's behavior.
func (d *Dispatcher) SetSpectator(spectator bool) error {
	if err := d.svc.SetSpectator(spectator); err != nil {
		return err
	}
	d.mu.Lock()
	d.spectator = spectator
	if spectator {
		d.points = nil
	}
	d.mu.Unlock()
	return nil
}

// Points returns the locally echoed vote, if any.
func (d *Dispatcher) Points() *string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.points == nil {
		return nil
	}
	points := *d.points
	return &points
}

// Spectator returns the locally echoed spectator flag.
func (d *Dispatcher) Spectator() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.spectator
}
