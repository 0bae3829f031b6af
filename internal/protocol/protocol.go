// Package protocol defines the JSON wire messages exchanged between a
// session client and the session service. Messages are adjacently tagged:
//
//	{"tag":"SetPoints","content":"5"}
//	{"tag":"ResetPoints"}
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/planc-dev/planc/internal/session"
)

// ErrUnknownTag is returned when a message carries a tag outside the
// protocol.
var ErrUnknownTag = errors.New("unknown message tag")

// Client message tags.
const (
	TagNameChange     = "NameChange"
	TagSetPoints      = "SetPoints"
	TagResetPoints    = "ResetPoints"
	TagWhoami         = "Whoami"
	TagClaimSession   = "ClaimSession"
	TagKickUser       = "KickUser"
	TagSetSpectator   = "SetSpectator"
	TagHoldConnection = "HoldConnection"
)

// Server message tags.
const (
	TagState     = "State"
	TagError     = "Error"
	TagKeepAlive = "KeepAlive"
)

// ClientMessage is a command sent by a client to the session service.
type ClientMessage struct {
	Tag     string          `json:"tag"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ServerMessage is a push from the session service to a client.
type ServerMessage struct {
	Tag     string          `json:"tag"`
	Content json.RawMessage `json:"content,omitempty"`
}

func mustRaw(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("protocol: marshal content: %v", err))
	}
	return data
}

// NameChange requests this client's display name be set.
func NameChange(name string) ClientMessage {
	return ClientMessage{Tag: TagNameChange, Content: mustRaw(name)}
}

// SetPoints requests this client's vote be set.
func SetPoints(points string) ClientMessage {
	return ClientMessage{Tag: TagSetPoints, Content: mustRaw(points)}
}

// ResetPoints requests all votes be cleared.
func ResetPoints() ClientMessage {
	return ClientMessage{Tag: TagResetPoints}
}

// Whoami requests the service echo back this client's user id.
func Whoami() ClientMessage {
	return ClientMessage{Tag: TagWhoami}
}

// ClaimSession requests this client become admin.
func ClaimSession() ClientMessage {
	return ClientMessage{Tag: TagClaimSession}
}

// KickUser requests removal of another user.
func KickUser(userID string) ClientMessage {
	return ClientMessage{Tag: TagKickUser, Content: mustRaw(userID)}
}

// SetSpectator requests this client's spectator flag be set.
func SetSpectator(spectator bool) ClientMessage {
	return ClientMessage{Tag: TagSetSpectator, Content: mustRaw(spectator)}
}

// HoldConnection asks the service to keep this user around as inactive
// after the connection closes.
func HoldConnection() ClientMessage {
	return ClientMessage{Tag: TagHoldConnection}
}

// StateMessage wraps a session state snapshot.
func StateMessage(state session.State) ServerMessage {
	return ServerMessage{Tag: TagState, Content: mustRaw(state)}
}

// WhoamiMessage carries the client's own user id.
func WhoamiMessage(userID string) ServerMessage {
	return ServerMessage{Tag: TagWhoami, Content: mustRaw(userID)}
}

// ErrorMessage carries a failure description.
func ErrorMessage(msg string) ServerMessage {
	return ServerMessage{Tag: TagError, Content: mustRaw(msg)}
}

// KeepAliveMessage is a no-op frame that keeps intermediaries from timing
// out the connection.
func KeepAliveMessage() ServerMessage {
	return ServerMessage{Tag: TagKeepAlive}
}

// DecodeClient parses and validates a client message.
func DecodeClient(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decode client message: %w", err)
	}
	switch msg.Tag {
	case TagNameChange, TagSetPoints, TagResetPoints, TagWhoami,
		TagClaimSession, TagKickUser, TagSetSpectator, TagHoldConnection:
		return msg, nil
	default:
		return ClientMessage{}, fmt.Errorf("%w: %q", ErrUnknownTag, msg.Tag)
	}
}

// DecodeServer parses and validates a server message.
func DecodeServer(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, fmt.Errorf("decode server message: %w", err)
	}
	switch msg.Tag {
	case TagState, TagWhoami, TagError, TagKeepAlive:
		return msg, nil
	default:
		return ServerMessage{}, fmt.Errorf("%w: %q", ErrUnknownTag, msg.Tag)
	}
}

// Text decodes a string content payload.
func (m ClientMessage) Text() (string, error) {
	var s string
	if err := json.Unmarshal(m.Content, &s); err != nil {
		return "", fmt.Errorf("decode %s content: %w", m.Tag, err)
	}
	return s, nil
}

// Bool decodes a boolean content payload.
func (m ClientMessage) Bool() (bool, error) {
	var b bool
	if err := json.Unmarshal(m.Content, &b); err != nil {
		return false, fmt.Errorf("decode %s content: %w", m.Tag, err)
	}
	return b, nil
}

// Text decodes a string content payload.
func (m ServerMessage) Text() (string, error) {
	var s string
	if err := json.Unmarshal(m.Content, &s); err != nil {
		return "", fmt.Errorf("decode %s content: %w", m.Tag, err)
	}
	return s, nil
}

// State decodes a session state payload.
func (m ServerMessage) State() (session.State, error) {
	var state session.State
	if err := json.Unmarshal(m.Content, &state); err != nil {
		return session.State{}, fmt.Errorf("decode %s content: %w", m.Tag, err)
	}
	if state.Users == nil {
		state.Users = make(map[string]session.UserState)
	}
	return state, nil
}
