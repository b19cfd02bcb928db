package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tyrowin/roomrelay/internal/metrics"
	"github.com/Tyrowin/roomrelay/internal/relay"
)

// App is the assembled relay: the routing core, the WebSocket transport and
// the HTTP surface. Construct it once at startup and Shutdown it on exit.
type App struct {
	Config      Config
	Rooms       *relay.RoomIndex
	Registry    *relay.Registry
	Router      *relay.Router
	Coordinator *relay.Coordinator
	Hub         *Hub
	Metrics     *metrics.Collector
	Handler     http.Handler

	logger *slog.Logger
}

// NewApp wires every component from cfg.
func NewApp(cfg Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.Sanitize()

	rooms := relay.NewRoomIndex()
	registry := relay.NewRegistry(rooms)
	collector := metrics.New(registry.Len, rooms.Len)
	hub := NewHub(cfg, logger)

	router := relay.NewRouter(registry, rooms, hub,
		relay.WithExcludeSender(cfg.ExcludeSender),
		relay.WithObserver(collector),
		relay.WithRouterLogger(logger.With(slog.String("component", "router"))),
	)
	coordinator := relay.NewCoordinator(registry, rooms, router,
		relay.WithCoordinatorLogger(logger.With(slog.String("component", "lifecycle"))),
	)

	hub.Bind(coordinator)
	hub.OnDrop(collector.FrameDropped)

	stats := func() Stats {
		return Stats{Connections: registry.Len(), Rooms: rooms.Len()}
	}
	handlers := NewHandlers(cfg, hub, stats, logger)

	return &App{
		Config:      cfg,
		Rooms:       rooms,
		Registry:    registry,
		Router:      router,
		Coordinator: coordinator,
		Hub:         hub,
		Metrics:     collector,
		Handler:     SetupRoutes(handlers, collector.Handler()),
		logger:      logger,
	}
}

// Start runs the hub loop in the background.
func (a *App) Start() {
	go a.Hub.Run()
	a.logger.Info("hub started and ready to manage websocket connections")
}

// Shutdown stops the hub and waits for client goroutines up to timeout.
func (a *App) Shutdown(timeout time.Duration) error {
	if err := a.Hub.Shutdown(timeout); err != nil {
		return errors.Join(errors.New("hub shutdown"), err)
	}
	return nil
}
