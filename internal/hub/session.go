// Package hub owns the authoritative session state. Every mutation goes
// through a guarded update that either commits and fans the new snapshot out
// to all subscribers, or leaves the state untouched.
package hub

import (
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/planc-dev/planc/internal/deck"
	"github.com/planc-dev/planc/internal/events"
	"github.com/planc-dev/planc/internal/protocol"
	"github.com/planc-dev/planc/internal/session"
)

const (
	maxNameLen   = 32
	maxPointsLen = 8
)

// Session is one live estimation session. State changes are broadcast to
// every subscriber as full snapshots, latest wins.
type Session struct {
	id     string
	limits Limits
	deck   *deck.Deck
	events events.Publisher

	mu         sync.Mutex
	state      session.State
	nextUserID int64
	subs       map[int64]chan session.State
	nextSubID  int64
}

// Limits caps session membership.
type Limits struct {
	MaxUsers int
}

func newSession(id string, limits Limits, d *deck.Deck, pub events.Publisher) *Session {
	log.Info().Str("session_id", id).Msg("creating session")
	return &Session{
		id:         id,
		limits:     limits,
		deck:       d,
		events:     pub,
		state:      session.NewState(),
		nextUserID: 1,
		subs:       make(map[int64]chan session.State),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Join adds a new user and returns its session-scoped id.
func (s *Session) Join() (string, error) {
	s.mu.Lock()
	if len(s.state.Users) >= s.limits.MaxUsers {
		s.mu.Unlock()
		return "", ErrMaxUsersExceeded
	}
	userID := strconv.FormatInt(s.nextUserID, 10)
	s.nextUserID++
	s.state.Users[userID] = session.UserState{}
	s.broadcastLocked()
	s.mu.Unlock()

	log.Info().Str("session_id", s.id).Str("user_id", userID).Msg("user joined session")
	s.publish(events.EventTypeUserJoined, userID)
	return userID, nil
}

// Leave removes a user, or marks it inactive when hold is set (the user
// asked to keep its seat across a disconnect). A departing admin leaves the
// session unclaimed.
func (s *Session) Leave(userID string, hold bool) {
	err := s.update(func(st *session.State) error {
		user, ok := st.Users[userID]
		if hold && ok {
			log.Info().Str("session_id", s.id).Str("user_id", userID).Msg("user on hold")
			user.IsInactive = true
			st.Users[userID] = user
		} else {
			log.Info().Str("session_id", s.id).Str("user_id", userID).Msg("user leaving session")
			delete(st.Users, userID)
		}
		if st.Admin != nil && *st.Admin == userID {
			st.Admin = nil
		}
		return nil
	})
	if err == nil {
		s.publish(events.EventTypeUserLeft, userID)
	}
}

// Subscribe registers a snapshot channel primed with the current state.
// Channels carry the latest snapshot only; a slow reader sees intermediate
// states collapsed into the newest one.
func (s *Session) Subscribe() (int64, <-chan session.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan session.State, 1)
	ch <- s.state.Clone()
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a snapshot channel.
func (s *Session) Unsubscribe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// UserCount returns the number of users, inactive included.
func (s *Session) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Users)
}

// Kicked reports whether a user has been flagged for removal.
func (s *Session) Kicked(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.state.Users[userID]
	return ok && user.Kicked
}

// HandleCommand applies a client command on behalf of userID. A non-nil
// reply goes back to that client only. Errors do not change state.
func (s *Session) HandleCommand(userID string, msg protocol.ClientMessage) (*protocol.ServerMessage, error) {
	if s.Kicked(userID) {
		return nil, ErrUserKicked
	}

	switch msg.Tag {
	case protocol.TagNameChange:
		name, err := msg.Text()
		if err != nil || len(name) > maxNameLen {
			return nil, ErrInvalidMessage
		}
		return nil, s.changeName(userID, name)

	case protocol.TagSetPoints:
		points, err := msg.Text()
		if err != nil || len(points) > maxPointsLen {
			return nil, ErrInvalidMessage
		}
		return nil, s.setPoints(userID, points)

	case protocol.TagResetPoints:
		return nil, s.resetPoints(userID)

	case protocol.TagWhoami:
		reply := protocol.WhoamiMessage(userID)
		return &reply, nil

	case protocol.TagClaimSession:
		return nil, s.claim(userID)

	case protocol.TagKickUser:
		kickeeID, err := msg.Text()
		if err != nil {
			return nil, ErrInvalidMessage
		}
		return nil, s.kick(userID, kickeeID)

	case protocol.TagSetSpectator:
		spectator, err := msg.Bool()
		if err != nil {
			return nil, ErrInvalidMessage
		}
		return nil, s.setSpectator(userID, spectator)

	default:
		return nil, ErrInvalidMessage
	}
}

// changeName sets the user's display name. Names are unique among active
// users; an inactive user holding the requested name is taken over instead,
// so a reconnecting participant gets its old seat back.
func (s *Session) changeName(userID, name string) error {
	return s.update(func(st *session.State) error {
		inactiveDuplicates := make(map[string]session.UserState)
		for otherID, other := range st.Users {
			if other.Name != nil && *other.Name == name && other.IsInactive {
				inactiveDuplicates[otherID] = other
				delete(st.Users, otherID)
			}
		}
		for otherID, other := range st.Users {
			if otherID != userID && other.Name != nil && *other.Name == name {
				return ErrDuplicateName
			}
		}
		user, ok := st.Users[userID]
		if !ok {
			return ErrUnknownUserID
		}
		if len(inactiveDuplicates) > 0 {
			for otherID, other := range inactiveDuplicates {
				log.Info().
					Str("session_id", s.id).
					Str("user_id", userID).
					Str("taken_over", otherID).
					Msg("user takes over inactive seat")
				user = other
				user.IsInactive = false
				break
			}
		} else {
			user.Name = &name
		}
		st.Users[userID] = user
		return nil
	})
}

// setPoints records the user's vote. An empty token clears it. Spectators
// cannot vote, and tokens must come from the deck.
func (s *Session) setPoints(userID, points string) error {
	return s.update(func(st *session.State) error {
		user, ok := st.Users[userID]
		if !ok {
			return ErrUnknownUserID
		}
		if user.IsSpectator {
			return ErrInvalidMessage
		}
		if points == "" {
			user.Points = nil
		} else {
			if !s.deck.Contains(points) {
				return ErrInvalidMessage
			}
			user.Points = &points
		}
		st.Users[userID] = user
		return nil
	})
}

// resetPoints clears every user's vote. Admin only.
func (s *Session) resetPoints(userID string) error {
	return s.update(func(st *session.State) error {
		if st.Admin == nil || *st.Admin != userID {
			return ErrInsufficientPermissions
		}
		for id, user := range st.Users {
			user.Points = nil
			st.Users[id] = user
		}
		return nil
	})
}

// claim makes the user admin of an unclaimed session. The first accepted
// claim wins; later claimants are rejected and observe the winner through
// the next snapshot.
func (s *Session) claim(userID string) error {
	return s.update(func(st *session.State) error {
		if st.Admin != nil {
			return ErrInsufficientPermissions
		}
		log.Info().Str("session_id", s.id).Str("user_id", userID).Msg("user claiming session")
		admin := userID
		st.Admin = &admin
		return nil
	})
}

// kick flags another user for removal. Admin only. The kickee's connection
// observes the flag and shuts down.
func (s *Session) kick(userID, kickeeID string) error {
	return s.update(func(st *session.State) error {
		if st.Admin == nil || *st.Admin != userID {
			return ErrInsufficientPermissions
		}
		kickee, ok := st.Users[kickeeID]
		if !ok {
			return ErrUnknownUserID
		}
		log.Info().Str("session_id", s.id).Str("user_id", kickeeID).Msg("kicking user")
		kickee.Kicked = true
		st.Users[kickeeID] = kickee
		return nil
	})
}

// setSpectator flips the user's spectator flag. Either direction clears the
// vote, so a returning voter starts fresh.
func (s *Session) setSpectator(userID string, spectator bool) error {
	return s.update(func(st *session.State) error {
		user, ok := st.Users[userID]
		if !ok {
			return ErrUnknownUserID
		}
		user.IsSpectator = spectator
		user.Points = nil
		st.Users[userID] = user
		return nil
	})
}

// update runs fn against a working copy of the state. On success the copy is
// committed and broadcast; on error nothing changes.
func (s *Session) update(fn func(st *session.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.Clone()
	if err := fn(&work); err != nil {
		return err
	}
	s.state = work
	s.broadcastLocked()
	return nil
}

func (s *Session) broadcastLocked() {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.state.Clone()
	}
}

func (s *Session) publish(eventType events.EventType, userID string) {
	if err := s.events.Publish(events.NewEvent(eventType, s.id, userID)); err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("failed to publish lifecycle event")
	}
}
