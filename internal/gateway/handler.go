package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/planc-dev/planc/internal/hub"
	"github.com/planc-dev/planc/internal/protocol"
)

// Handler terminates websocket connections for the session registry.
type Handler struct {
	registry *hub.Registry
	upgrader websocket.Upgrader
	config   Config
	clock    clockwork.Clock
}

// NewHandler creates a gateway handler.
func NewHandler(registry *hub.Registry, config Config, clock clockwork.Clock) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		clock:  clock,
	}
}

// RegisterRoutes registers the websocket and stats routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/session", h.HandleSession)
	mux.HandleFunc("/api/sessions", h.HandleSessionStats)
}

// HandleSession upgrades the connection and joins the requested session.
// Sessions are created on first join.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}

	sess, err := h.registry.Acquire(sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("join denied")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to upgrade connection")
		h.registry.Release(sess)
		return
	}

	h.serve(sess, conn)
}

func (h *Handler) serve(sess *hub.Session, conn *websocket.Conn) {
	defer h.registry.Release(sess)

	userID, err := sess.Join()
	if err != nil {
		// The session is full. Tell the client and hang up; joining is the
		// one error that precedes having a user at all.
		log.Warn().Err(err).Str("session_id", sess.ID()).Msg("join denied")
		conn.SetWriteDeadline(h.clock.Now().Add(h.config.WriteTimeout))
		conn.WriteJSON(protocol.ErrorMessage(fmt.Sprintf("error joining session: %s", err)))
		conn.Close()
		return
	}

	c := newConnection(userID, sess, conn, h.config, h.clock)
	log.Info().
		Str("connection_id", c.id).
		Str("session_id", sess.ID()).
		Str("user_id", userID).
		Msg("websocket connection established")

	go c.writePump()
	hold := c.readPump()

	sess.Leave(userID, hold)
	conn.Close()
	log.Info().
		Str("connection_id", c.id).
		Str("session_id", sess.ID()).
		Str("user_id", userID).
		Bool("hold", hold).
		Msg("websocket connection closed")
}

// HandleSessionStats reports connection counts per live session.
func (h *Handler) HandleSessionStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.registry.Stats()
	total := 0
	for _, n := range stats {
		total += n
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"total_connections": total,
		"active_sessions":   len(stats),
		"session_connections": stats,
	}); err != nil {
		log.Error().Err(err).Msg("failed to encode session stats")
	}
}
