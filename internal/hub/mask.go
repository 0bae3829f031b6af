package hub

import "github.com/planc-dev/planc/internal/session"

// maskedPoints is what other users' set votes look like before reveal.
const maskedPoints = "-1"

// MaskForViewer prepares a snapshot for one viewer: kicked users are
// dropped, and while any non-spectator still has to vote, everyone else's
// set vote is masked so it cannot be read off the wire. The second return
// is true when the viewer itself has been kicked.
func MaskForViewer(state session.State, viewerID string) (session.State, bool) {
	if user, ok := state.Users[viewerID]; ok && user.Kicked {
		return session.State{}, true
	}

	masked := state.Clone()
	for id, user := range masked.Users {
		if user.Kicked {
			delete(masked.Users, id)
		}
	}

	pending := false
	for _, user := range masked.Users {
		if !user.IsSpectator && user.Points == nil {
			pending = true
			break
		}
	}
	if pending {
		for id, user := range masked.Users {
			if id != viewerID && user.Points != nil {
				points := maskedPoints
				user.Points = &points
				masked.Users[id] = user
			}
		}
	}
	return masked, false
}
