// Package gateway is the websocket transport for estimation sessions: it
// upgrades HTTP connections, feeds client commands into the hub, and pushes
// per-viewer masked snapshots back out.
package gateway

import (
	"net/http"
	"time"
)

// Config holds websocket connection settings.
type Config struct {
	WriteTimeout      time.Duration
	ReadTimeout       time.Duration
	PingInterval      time.Duration
	KeepAliveInterval time.Duration
	MaxMessageSize    int64
	ReadBufferSize    int
	WriteBufferSize   int
	CheckOrigin       func(r *http.Request) bool
}

// DefaultConfig returns default websocket settings. The keep-alive message
// interval is short because some reverse proxies drop quiet connections.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:      10 * time.Second,
		ReadTimeout:       60 * time.Second,
		PingInterval:      30 * time.Second,
		KeepAliveInterval: 5 * time.Second,
		MaxMessageSize:    1024,
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins; restrict behind a proxy in production.
			return true
		},
	}
}
