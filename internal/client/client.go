// Package client connects the session state store and command dispatcher to
// a live session service over websocket. Snapshots flow in and replace the
// store's value wholesale; commands flow out fire-and-forget.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/planc-dev/planc/internal/dispatch"
	"github.com/planc-dev/planc/internal/protocol"
	"github.com/planc-dev/planc/internal/session"
	"github.com/planc-dev/planc/internal/store"
)

// Client is one joined session connection. It implements dispatch.Service.
type Client struct {
	conn      *websocket.Conn
	store     *store.Store
	sessionID string
	uid       string

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

var _ dispatch.Service = (*Client)(nil)

// noDeadline clears a previously set read deadline.
var noDeadline time.Time

// Dial joins a session and starts pumping snapshots into the store. The
// returned client's own user id is resolved during the handshake. An empty
// name skips the name change.
func Dial(ctx context.Context, serviceURL, sessionID, name string, st *store.Store) (*Client, error) {
	base, err := url.Parse(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	}
	base.Path = "/ws/session"
	base.RawQuery = url.Values{"session": {sessionID}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial session service: %w", err)
	}

	c := &Client{
		conn:      conn,
		store:     st,
		sessionID: sessionID,
		done:      make(chan struct{}),
	}

	if err := c.send(protocol.Whoami()); err != nil {
		conn.Close()
		return nil, err
	}
	if name != "" {
		if err := c.send(protocol.NameChange(name)); err != nil {
			conn.Close()
			return nil, err
		}
	}

	// Snapshots may arrive before the Whoami reply; stash the newest one so
	// the store's first value already carries our uid.
	pending, err := c.awaitWhoami(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if pending != nil {
		st.Set(&session.Session{ID: c.sessionID, UID: c.uid, State: *pending})
	}

	go c.readPump()
	return c, nil
}

func (c *Client) awaitWhoami(ctx context.Context) (*session.State, error) {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(deadline)
		defer c.conn.SetReadDeadline(noDeadline)
	}

	var pending *session.State
	for {
		msg, err := c.read()
		if err != nil {
			return nil, fmt.Errorf("handshake: %w", err)
		}
		switch msg.Tag {
		case protocol.TagWhoami:
			uid, err := msg.Text()
			if err != nil {
				return nil, err
			}
			c.uid = uid
			return pending, nil
		case protocol.TagState:
			state, err := msg.State()
			if err != nil {
				return nil, err
			}
			pending = &state
		case protocol.TagError:
			text, _ := msg.Text()
			return nil, fmt.Errorf("session service: %s", text)
		case protocol.TagKeepAlive:
		}
	}
}

// readPump applies server pushes in arrival order. When the connection ends
// for any reason the store transitions to "no session" exactly once.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.done)
		c.store.Set(nil)
	}()

	for {
		msg, err := c.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("session_id", c.sessionID).Msg("session connection lost")
				c.store.ReportError(err)
			}
			return
		}

		switch msg.Tag {
		case protocol.TagState:
			state, err := msg.State()
			if err != nil {
				c.store.ReportError(err)
				continue
			}
			c.store.Set(&session.Session{ID: c.sessionID, UID: c.uid, State: state})

		case protocol.TagError:
			text, err := msg.Text()
			if err != nil {
				c.store.ReportError(err)
				continue
			}
			c.store.ReportError(errors.New(text))

		case protocol.TagKeepAlive:
			// Nothing to do; the frame exists to keep proxies happy.

		case protocol.TagWhoami:
			// Unsolicited but harmless.
		}
	}
}

func (c *Client) read() (protocol.ServerMessage, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return protocol.ServerMessage{}, err
	}
	return protocol.DecodeServer(data)
}

func (c *Client) send(msg protocol.ClientMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Tag, err)
	}
	return nil
}

// UID returns this client's session-scoped user id.
func (c *Client) UID() string { return c.uid }

// Done is closed when the connection has ended and the store holds nil.
func (c *Client) Done() <-chan struct{} { return c.done }

// SetPoints implements dispatch.Service.
func (c *Client) SetPoints(points string) error {
	return c.send(protocol.SetPoints(points))
}

// ResetPoints implements dispatch.Service.
func (c *Client) ResetPoints() error {
	return c.send(protocol.ResetPoints())
}

// ClaimSession implements dispatch.Service.
func (c *Client) ClaimSession() error {
	return c.send(protocol.ClaimSession())
}

// KickUser implements dispatch.Service.
func (c *Client) KickUser(userID string) error {
	return c.send(protocol.KickUser(userID))
}

// SetSpectator implements dispatch.Service.
func (c *Client) SetSpectator(spectator bool) error {
	return c.send(protocol.SetSpectator(spectator))
}

// SetName requests a display name change.
func (c *Client) SetName(name string) error {
	return c.send(protocol.NameChange(name))
}

// Hold asks the service to keep this user's seat as inactive, then closes
// the connection.
func (c *Client) Hold() error {
	if err := c.send(protocol.HoldConnection()); err != nil {
		return err
	}
	return c.Close()
}

// Close ends the connection. The store observes the logout through the read
// pump.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		err = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		c.conn.Close()
	})
	return err
}
