package gateway

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/planc-dev/planc/internal/hub"
	"github.com/planc-dev/planc/internal/protocol"
)

const kickedNotice = "You have been kicked from the session"

// connection is one client's websocket attached to a session.
type connection struct {
	id     string
	userID string
	sess   *hub.Session
	conn   *websocket.Conn
	config Config
	clock  clockwork.Clock

	// replies carries direct responses (Whoami, errors) from the read pump
	// to the single writer.
	replies chan protocol.ServerMessage
	// stop is closed by the read pump so the write pump exits.
	stop chan struct{}
}

func newConnection(userID string, sess *hub.Session, conn *websocket.Conn, config Config, clock clockwork.Clock) *connection {
	return &connection{
		id:      uuid.New().String(),
		userID:  userID,
		sess:    sess,
		conn:    conn,
		config:  config,
		clock:   clock,
		replies: make(chan protocol.ServerMessage, 8),
		stop:    make(chan struct{}),
	}
}

// writePump is the sole writer on the websocket. It forwards masked
// snapshots, direct replies, keep-alive messages and ping frames.
func (c *connection) writePump() {
	subID, updates := c.sess.Subscribe()
	keepAlive := c.clock.NewTicker(c.config.KeepAliveInterval)
	ping := c.clock.NewTicker(c.config.PingInterval)
	defer func() {
		keepAlive.Stop()
		ping.Stop()
		c.sess.Unsubscribe(subID)
		c.conn.Close()
	}()

	for {
		select {
		case <-c.stop:
			// Flush any direct reply the read pump queued before stopping,
			// so a rejected client sees why it was dropped.
			for {
				select {
				case msg := <-c.replies:
					if !c.write(msg) {
						return
					}
				default:
					return
				}
			}

		case state, ok := <-updates:
			if !ok {
				return
			}
			masked, kicked := hub.MaskForViewer(state, c.userID)
			if kicked {
				c.write(protocol.ErrorMessage(kickedNotice))
				return
			}
			if !c.write(protocol.StateMessage(masked)) {
				return
			}

		case msg := <-c.replies:
			if !c.write(msg) {
				return
			}

		case <-keepAlive.Chan():
			if !c.write(protocol.KeepAliveMessage()) {
				return
			}

		case <-ping.Chan():
			c.conn.SetWriteDeadline(c.clock.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *connection) write(msg protocol.ServerMessage) bool {
	c.conn.SetWriteDeadline(c.clock.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Str("connection_id", c.id).Msg("failed to write message")
		return false
	}
	return true
}

// readPump decodes client commands and applies them to the session. It
// returns whether the user asked to hold its seat across the disconnect.
// Any command error is reported to the client and terminates the
// connection, matching the service contract that protocol violations are
// fatal to the offending connection only.
func (c *connection) readPump() (hold bool) {
	defer close(c.stop)

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(c.clock.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(c.clock.Now().Add(c.config.ReadTimeout))
		return nil
	})

	holdRequested := false
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("websocket closed unexpectedly")
			}
			return holdRequested
		}
		c.conn.SetReadDeadline(c.clock.Now().Add(c.config.ReadTimeout))

		if holdRequested {
			// After a hold request the remote must close, not keep talking.
			c.reportError(hub.ErrConnectionNotClosed)
			return false
		}

		msg, err := protocol.DecodeClient(data)
		if err != nil {
			log.Warn().Err(err).Str("connection_id", c.id).Msg("rejecting client message")
			c.reportError(hub.ErrInvalidMessage)
			return false
		}

		if msg.Tag == protocol.TagHoldConnection {
			holdRequested = true
			continue
		}

		reply, err := c.sess.HandleCommand(c.userID, msg)
		if err != nil {
			log.Warn().
				Err(err).
				Str("connection_id", c.id).
				Str("user_id", c.userID).
				Str("tag", msg.Tag).
				Msg("command rejected")
			c.reportError(err)
			return false
		}
		if reply != nil {
			select {
			case c.replies <- *reply:
			default:
				log.Warn().Str("connection_id", c.id).Msg("reply buffer full, dropping reply")
			}
		}
	}
}

func (c *connection) reportError(err error) {
	select {
	case c.replies <- protocol.ErrorMessage(err.Error()):
	default:
	}
}
