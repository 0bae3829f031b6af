package hub

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/planc-dev/planc/internal/deck"
	"github.com/planc-dev/planc/internal/events"
	"github.com/planc-dev/planc/internal/protocol"
)

func newTestSession(t *testing.T, maxUsers int) *Session {
	t.Helper()
	return newSession("demo", Limits{MaxUsers: maxUsers}, deck.Default(), events.NopPublisher{})
}

func join(t *testing.T, s *Session) string {
	t.Helper()
	userID, err := s.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	return userID
}

func command(t *testing.T, s *Session, userID string, msg protocol.ClientMessage) {
	t.Helper()
	if _, err := s.HandleCommand(userID, msg); err != nil {
		t.Fatalf("%s as user %s: %v", msg.Tag, userID, err)
	}
}

func TestJoinAssignsSequentialIDs(t *testing.T) {
	s := newTestSession(t, 16)
	first := join(t, s)
	second := join(t, s)

	if first != "1" || second != "2" {
		t.Fatalf("expected ids 1 and 2, got %q and %q", first, second)
	}
	if s.UserCount() != 2 {
		t.Fatalf("expected 2 users, got %d", s.UserCount())
	}
}

func TestJoinRespectsUserLimit(t *testing.T) {
	s := newTestSession(t, 2)
	join(t, s)
	join(t, s)

	if _, err := s.Join(); !errors.Is(err, ErrMaxUsersExceeded) {
		t.Fatalf("expected ErrMaxUsersExceeded, got %v", err)
	}
}

func TestWhoamiRepliesToSenderOnly(t *testing.T) {
	s := newTestSession(t, 16)
	userID := join(t, s)

	reply, err := s.HandleCommand(userID, protocol.Whoami())
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if reply == nil || reply.Tag != protocol.TagWhoami {
		t.Fatalf("expected Whoami reply, got %v", reply)
	}
	uid, err := reply.Text()
	if err != nil {
		t.Fatalf("reply content: %v", err)
	}
	if uid != userID {
		t.Fatalf("expected uid %q, got %q", userID, uid)
	}
}

func TestNameChangeRejectsActiveDuplicate(t *testing.T) {
	s := newTestSession(t, 16)
	alice := join(t, s)
	bob := join(t, s)

	command(t, s, alice, protocol.NameChange("Alice"))
	if _, err := s.HandleCommand(bob, protocol.NameChange("Alice")); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	// The failed command must not leave partial state behind.
	st := s.Snapshot()
	if st.Users[bob].Name != nil {
		t.Fatalf("rejected rename must not stick, got %q", *st.Users[bob].Name)
	}
}

func TestNameChangeTakesOverInactiveSeat(t *testing.T) {
	s := newTestSession(t, 16)
	alice := join(t, s)
	command(t, s, alice, protocol.NameChange("Alice"))
	command(t, s, alice, protocol.SetPoints("5"))
	s.Leave(alice, true)

	successor := join(t, s)
	command(t, s, successor, protocol.NameChange("Alice"))

	st := s.Snapshot()
	if _, ok := st.Users[alice]; ok {
		t.Fatal("expected inactive seat to be absorbed")
	}
	user := st.Users[successor]
	if user.Name == nil || *user.Name != "Alice" {
		t.Fatalf("expected successor named Alice, got %v", user.Name)
	}
	if user.IsInactive {
		t.Fatal("expected successor to be active")
	}
	if user.Points == nil || *user.Points != "5" {
		t.Fatalf("expected inherited vote 5, got %v", user.Points)
	}
}

func TestNameChangeRejectsOversizedName(t *testing.T) {
	s := newTestSession(t, 16)
	userID := join(t, s)

	long := make([]byte, maxNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := s.HandleCommand(userID, protocol.NameChange(string(long))); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestSetPointsValidatedAgainstDeck(t *testing.T) {
	s := newTestSession(t, 16)
	userID := join(t, s)

	command(t, s, userID, protocol.SetPoints("5"))
	st := s.Snapshot()
	if st.Users[userID].Points == nil || *st.Users[userID].Points != "5" {
		t.Fatalf("expected vote 5, got %v", st.Users[userID].Points)
	}

	if _, err := s.HandleCommand(userID, protocol.SetPoints("7")); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage for off-deck token, got %v", err)
	}
}

func TestSetPointsEmptyClearsVote(t *testing.T) {
	s := newTestSession(t, 16)
	userID := join(t, s)

	command(t, s, userID, protocol.SetPoints("5"))
	command(t, s, userID, protocol.SetPoints(""))

	st := s.Snapshot()
	if st.Users[userID].Points != nil {
		t.Fatalf("expected cleared vote, got %q", *st.Users[userID].Points)
	}
}

func TestSetPointsRejectedForSpectators(t *testing.T) {
	s := newTestSession(t, 16)
	userID := join(t, s)

	command(t, s, userID, protocol.SetSpectator(true))
	if _, err := s.HandleCommand(userID, protocol.SetPoints("5")); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestSpectatorToggleClearsVote(t *testing.T) {
	s := newTestSession(t, 16)
	userID := join(t, s)

	command(t, s, userID, protocol.SetPoints("8"))
	command(t, s, userID, protocol.SetSpectator(true))

	st := s.Snapshot()
	if !st.Users[userID].IsSpectator {
		t.Fatal("expected spectator flag")
	}
	if st.Users[userID].Points != nil {
		t.Fatalf("expected cleared vote, got %q", *st.Users[userID].Points)
	}
}

func TestClaimFirstWins(t *testing.T) {
	s := newTestSession(t, 16)
	alice := join(t, s)
	bob := join(t, s)

	command(t, s, alice, protocol.ClaimSession())
	if _, err := s.HandleCommand(bob, protocol.ClaimSession()); !errors.Is(err, ErrInsufficientPermissions) {
		t.Fatalf("expected ErrInsufficientPermissions, got %v", err)
	}

	st := s.Snapshot()
	if st.Admin == nil || *st.Admin != alice {
		t.Fatalf("expected admin %q, got %v", alice, st.Admin)
	}
}

func TestResetPointsAdminOnly(t *testing.T) {
	s := newTestSession(t, 16)
	alice := join(t, s)
	bob := join(t, s)

	command(t, s, alice, protocol.SetPoints("3"))
	command(t, s, bob, protocol.SetPoints("5"))

	if _, err := s.HandleCommand(bob, protocol.ResetPoints()); !errors.Is(err, ErrInsufficientPermissions) {
		t.Fatalf("expected ErrInsufficientPermissions, got %v", err)
	}

	command(t, s, alice, protocol.ClaimSession())
	command(t, s, alice, protocol.ResetPoints())

	st := s.Snapshot()
	for id, user := range st.Users {
		if user.Points != nil {
			t.Fatalf("expected user %s cleared, got %q", id, *user.Points)
		}
	}
}

func TestKickAdminOnly(t *testing.T) {
	s := newTestSession(t, 16)
	alice := join(t, s)
	bob := join(t, s)

	if _, err := s.HandleCommand(bob, protocol.KickUser(alice)); !errors.Is(err, ErrInsufficientPermissions) {
		t.Fatalf("expected ErrInsufficientPermissions, got %v", err)
	}

	command(t, s, alice, protocol.ClaimSession())
	command(t, s, alice, protocol.KickUser(bob))

	if !s.Kicked(bob) {
		t.Fatal("expected bob flagged as kicked")
	}
	if _, err := s.HandleCommand(bob, protocol.SetPoints("5")); !errors.Is(err, ErrUserKicked) {
		t.Fatalf("expected ErrUserKicked, got %v", err)
	}
}

func TestKickUnknownUser(t *testing.T) {
	s := newTestSession(t, 16)
	alice := join(t, s)
	command(t, s, alice, protocol.ClaimSession())

	if _, err := s.HandleCommand(alice, protocol.KickUser("99")); !errors.Is(err, ErrUnknownUserID) {
		t.Fatalf("expected ErrUnknownUserID, got %v", err)
	}
}

func TestLeaveClearsAdmin(t *testing.T) {
	s := newTestSession(t, 16)
	alice := join(t, s)
	command(t, s, alice, protocol.ClaimSession())

	s.Leave(alice, false)

	st := s.Snapshot()
	if st.Admin != nil {
		t.Fatalf("expected unclaimed session, got admin %q", *st.Admin)
	}
	if _, ok := st.Users[alice]; ok {
		t.Fatal("expected alice removed")
	}
}

func TestLeaveWithHoldMarksInactive(t *testing.T) {
	s := newTestSession(t, 16)
	alice := join(t, s)
	command(t, s, alice, protocol.NameChange("Alice"))

	s.Leave(alice, true)

	st := s.Snapshot()
	user, ok := st.Users[alice]
	if !ok {
		t.Fatal("expected held seat to survive")
	}
	if !user.IsInactive {
		t.Fatal("expected held seat marked inactive")
	}
}

func TestSubscribeLatestWins(t *testing.T) {
	s := newTestSession(t, 16)
	userID := join(t, s)

	subID, ch := s.Subscribe()
	defer s.Unsubscribe(subID)

	// Primed with the state at subscription time.
	<-ch

	command(t, s, userID, protocol.SetPoints("3"))
	command(t, s, userID, protocol.SetPoints("5"))
	command(t, s, userID, protocol.SetPoints("8"))

	st := <-ch
	if st.Users[userID].Points == nil || *st.Users[userID].Points != "8" {
		t.Fatalf("expected latest snapshot to win, got %v", st.Users[userID].Points)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected intermediate snapshots collapsed, got %v", extra)
	default:
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := newTestSession(t, 16)
	userID := join(t, s)
	command(t, s, userID, protocol.NameChange("Alice"))

	st := s.Snapshot()
	*st.Users[userID].Name = "Mallory"

	if name := s.Snapshot().Users[userID].Name; name == nil || *name != "Alice" {
		t.Fatalf("expected internal state untouched, got %v", name)
	}
}

func TestOrderedIDsAfterChurn(t *testing.T) {
	s := newTestSession(t, 16)
	var ids []string
	for range 3 {
		ids = append(ids, join(t, s))
	}
	s.Leave(ids[1], false)
	ids = append(ids[:1], ids[2])
	ids = append(ids, join(t, s))

	st := s.Snapshot()
	if diff := cmp.Diff(ids, st.OrderedIDs()); diff != "" {
		t.Fatalf("join order (-want +got):\n%s", diff)
	}
}
