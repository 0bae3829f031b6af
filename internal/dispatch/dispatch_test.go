package dispatch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeService struct {
	calls []string
	err   error
}

func (f *fakeService) SetPoints(points string) error {
	f.calls = append(f.calls, fmt.Sprintf("SetPoints(%q)", points))
	return f.err
}

func (f *fakeService) ResetPoints() error {
	f.calls = append(f.calls, "ResetPoints")
	return f.err
}

func (f *fakeService) ClaimSession() error {
	f.calls = append(f.calls, "ClaimSession")
	return f.err
}

func (f *fakeService) KickUser(userID string) error {
	f.calls = append(f.calls, fmt.Sprintf("KickUser(%q)", userID))
	return f.err
}

func (f *fakeService) SetSpectator(spectator bool) error {
	f.calls = append(f.calls, fmt.Sprintf("SetSpectator(%v)", spectator))
	return f.err
}

func TestSetPointsForwardsAndEchoes(t *testing.T) {
	svc := &fakeService{}
	d := New(svc)

	if err := d.SetPoints("5"); err != nil {
		t.Fatalf("set points: %v", err)
	}
	if diff := cmp.Diff([]string{`SetPoints("5")`}, svc.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
	if points := d.Points(); points == nil || *points != "5" {
		t.Fatalf("expected echo 5, got %v", points)
	}
}

func TestSetPointsValidation(t *testing.T) {
	svc := &fakeService{}
	d := New(svc)

	if err := d.SetPoints(""); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
	if err := d.SetPoints("123456789"); err == nil {
		t.Fatal("expected error for oversized token")
	}
	if len(svc.calls) != 0 {
		t.Fatalf("invalid commands must not reach the service: %v", svc.calls)
	}
}

func TestSetPointsIdempotentWithoutToggle(t *testing.T) {
	svc := &fakeService{}
	d := New(svc)

	if err := d.SetPoints("5"); err != nil {
		t.Fatalf("set points: %v", err)
	}
	if err := d.SetPoints("5"); err != nil {
		t.Fatalf("set points again: %v", err)
	}
	want := []string{`SetPoints("5")`, `SetPoints("5")`}
	if diff := cmp.Diff(want, svc.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
	if points := d.Points(); points == nil || *points != "5" {
		t.Fatalf("expected echo 5, got %v", points)
	}
}

func TestSetPointsToggleClears(t *testing.T) {
	svc := &fakeService{}
	d := New(svc, WithToggle())

	if err := d.SetPoints("5"); err != nil {
		t.Fatalf("set points: %v", err)
	}
	if err := d.SetPoints("5"); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	want := []string{`SetPoints("5")`, `SetPoints("")`}
	if diff := cmp.Diff(want, svc.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
	if points := d.Points(); points != nil {
		t.Fatalf("expected cleared echo, got %q", *points)
	}
}

func TestFailedDispatchKeepsEcho(t *testing.T) {
	svc := &fakeService{err: errors.New("boom")}
	d := New(svc)

	if err := d.SetPoints("5"); err == nil {
		t.Fatal("expected service error")
	}
	if points := d.Points(); points != nil {
		t.Fatalf("failed dispatch must not echo, got %q", *points)
	}
}

func TestKickUserValidation(t *testing.T) {
	svc := &fakeService{}
	d := New(svc)

	if err := d.KickUser(""); !errors.Is(err, ErrEmptyUserID) {
		t.Fatalf("expected ErrEmptyUserID, got %v", err)
	}
	if err := d.KickUser("2"); err != nil {
		t.Fatalf("kick: %v", err)
	}
	if diff := cmp.Diff([]string{`KickUser("2")`}, svc.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
}

func TestSpectatorClearsEcho(t *testing.T) {
	svc := &fakeService{}
	d := New(svc)

	if err := d.SetPoints("8"); err != nil {
		t.Fatalf("set points: %v", err)
	}
	if err := d.SetSpectator(true); err != nil {
		t.Fatalf("set spectator: %v", err)
	}
	if !d.Spectator() {
		t.Fatal("expected spectator echo")
	}
	if points := d.Points(); points != nil {
		t.Fatalf("expected cleared vote echo, got %q", *points)
	}
}

func TestPassThroughCommands(t *testing.T) {
	svc := &fakeService{}
	d := New(svc)

	if err := d.ResetPoints(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := d.ClaimSession(); err != nil {
		t.Fatalf("claim: %v", err)
	}
	want := []string{"ResetPoints", "ClaimSession"}
	if diff := cmp.Diff(want, svc.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
}
