// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Stats is a point-in-time view of relay occupancy.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	hub      *Hub
	upgrader websocket.Upgrader
	stats    func() Stats
	logger   *slog.Logger
}

// NewHandlers creates the HTTP handlers. stats may be nil, in which case the
// hub's client count is reported.
func NewHandlers(cfg Config, hub *Hub, stats func() Stats, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	policy := newOriginPolicy(cfg.AllowedOrigins, logger)
	if stats == nil {
		stats = func() Stats { return Stats{Connections: hub.Len()} }
	}

	return &Handlers{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.check,
		},
		stats:  stats,
		logger: logger,
	}
}

// WebSocket upgrades the request, assigns the connection a fresh id and hands
// it to the hub, which starts the pumps.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("remote_addr", r.RemoteAddr), slog.Any("error", err))
		return
	}

	client := NewClient(uuid.NewString(), conn, h.hub, r.RemoteAddr)
	if err := h.hub.Register(client); err != nil {
		h.logger.Warn("websocket rejected", slog.String("remote_addr", r.RemoteAddr), slog.Any("error", err))
		client.closeConnection()
	}
}

// Health responds with a plain text liveness message.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "roomrelay server is running!")
}

// Healthz responds with JSON status and occupancy counts.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	body := struct {
		Status string `json:"status"`
		Stats
	}{Status: "ok", Stats: h.stats()}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("error writing health response", slog.Any("error", err))
	}
}

// TestPage serves an HTML page for trying rooms and broadcasts in a browser.
func (h *Handlers) TestPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		h.logger.Warn("error writing test page", slog.String("remote_addr", r.RemoteAddr), slog.Any("error", err))
	}
}
