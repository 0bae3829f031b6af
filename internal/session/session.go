// Package session defines the shared session data model: the authoritative
// state pushed by the service and the client-side view of one joined session.
package session

import (
	"sort"
	"strconv"
)

// UserState is one participant's slice of the session state. It is mutated
// only by the session service; clients observe it through snapshots.
type UserState struct {
	Name        *string `json:"name"`
	Points      *string `json:"points"`
	IsSpectator bool    `json:"isSpectator"`
	IsInactive  bool    `json:"isInactive"`

	// Kicked marks a user pending removal. It is server-internal and never
	// crosses the wire.
	Kicked bool `json:"-"`
}

// State is the authoritative shared session state. If Admin is non-nil it
// keys an entry in Users.
type State struct {
	Users map[string]UserState `json:"users"`
	Admin *string              `json:"admin"`
}

// NewState returns an empty session state.
func NewState() State {
	return State{Users: make(map[string]UserState)}
}

// Clone returns a deep copy of the state. Snapshots handed to observers are
// always copies so no two holders share mutable data.
func (s State) Clone() State {
	out := State{Users: make(map[string]UserState, len(s.Users))}
	for id, user := range s.Users {
		if user.Name != nil {
			name := *user.Name
			user.Name = &name
		}
		if user.Points != nil {
			points := *user.Points
			user.Points = &points
		}
		out.Users[id] = user
	}
	if s.Admin != nil {
		admin := *s.Admin
		out.Admin = &admin
	}
	return out
}

// OrderedIDs returns the user ids in join order. The service assigns ids
// from an incrementing counter, so numeric comparison recovers the order a
// plain map iteration would lose. Non-numeric ids sort after numeric ones,
// lexicographically.
func (s State) OrderedIDs() []string {
	ids := make([]string, 0, len(s.Users))
	for id := range s.Users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aerr := strconv.ParseInt(ids[i], 10, 64)
		b, berr := strconv.ParseInt(ids[j], 10, 64)
		switch {
		case aerr == nil && berr == nil:
			return a < b
		case aerr == nil:
			return true
		case berr == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}

// Session is the client-side view of one joined session. It is replaced
// wholesale on every snapshot push and destroyed on logout or eviction.
type Session struct {
	ID    string `json:"sessionId"`
	UID   string `json:"uid"`
	State State  `json:"state"`
}
