// Package view computes role- and reveal-dependent facts from a session
// snapshot. Every function is pure and tolerates a nil session: absence of
// data is meaningful state, not an error.
package view

import (
	"math"
	"strconv"

	"github.com/planc-dev/planc/internal/session"
)

// eachVoter visits every non-spectator user in join order.
func eachVoter(s *session.Session, fn func(user session.UserState)) {
	if s == nil {
		return
	}
	for _, id := range s.State.OrderedIDs() {
		user := s.State.Users[id]
		if !user.IsSpectator {
			fn(user)
		}
	}
}

// RevealCards reports whether every non-spectator user has voted. A session
// with zero non-spectator users is vacuously revealed.
func RevealCards(s *session.Session) bool {
	if s == nil {
		return false
	}
	reveal := true
	eachVoter(s, func(user session.UserState) {
		if user.Points == nil {
			reveal = false
		}
	})
	return reveal
}

// DisplayCardPicker reports whether the card picker is meaningful, which is
// only pre-reveal.
func DisplayCardPicker(s *session.Session) bool {
	return !RevealCards(s)
}

// MeanVote returns the average of the numeric votes among non-spectator
// users, rounded to the nearest integer. Non-numeric tokens ("?", "coffee")
// count in neither numerator nor denominator. No numeric votes yields 0.
func MeanVote(s *session.Session) int {
	var num, sum float64
	eachVoter(s, func(user session.UserState) {
		if vote, ok := numericVote(user); ok {
			num++
			sum += vote
		}
	})
	if num == 0 {
		return 0
	}
	return int(math.Round(sum / num))
}

// HighVoters returns the names of every user tied at the highest numeric
// vote, in join order. Users without a name are skipped.
func HighVoters(s *session.Session) []string {
	return votersAtExtreme(s, func(vote, best float64) bool { return vote > best })
}

// LowVoters returns the names of every user tied at the lowest numeric
// vote, in join order. Users without a name are skipped.
func LowVoters(s *session.Session) []string {
	return votersAtExtreme(s, func(vote, best float64) bool { return vote < best })
}

// votersAtExtreme runs an optional-value extremum search: the first numeric
// vote seeds the extreme, later votes replace or tie it. Seeding from the
// data instead of a sentinel keeps the search correct for any deck.
func votersAtExtreme(s *session.Session, better func(vote, best float64) bool) []string {
	var names []string
	var best float64
	seen := false
	eachVoter(s, func(user session.UserState) {
		if user.Name == nil {
			return
		}
		vote, ok := numericVote(user)
		if !ok {
			return
		}
		switch {
		case !seen || better(vote, best):
			names = []string{*user.Name}
			best = vote
			seen = true
		case vote == best:
			names = append(names, *user.Name)
		}
	})
	return names
}

// CanControl reports whether this client is the session admin.
func CanControl(s *session.Session) bool {
	if s == nil || s.State.Admin == nil {
		return false
	}
	return s.UID == *s.State.Admin
}

// CanClaim reports whether the session is unclaimed.
func CanClaim(s *session.Session) bool {
	return s != nil && s.State.Admin == nil
}

func numericVote(user session.UserState) (float64, bool) {
	if user.Points == nil {
		return 0, false
	}
	vote, err := strconv.ParseFloat(*user.Points, 64)
	if err != nil {
		return 0, false
	}
	return vote, true
}
