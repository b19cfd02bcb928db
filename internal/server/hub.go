// Package server tracks live WebSocket clients for the relay via the Hub
// type, which is the transport half of the system: it owns the socket pumps
// and implements the send primitive the router delivers through.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Hub manages all WebSocket client connections. Routing decisions are made by
// the bound Lifecycle; the hub only moves bytes and reports open and close.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	cfg       Config
	lifecycle Lifecycle
	logger    *slog.Logger
	onDrop    func(reason string)
}

// NewHub creates and initializes a new Hub instance. Bind a Lifecycle before
// calling Run.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		cfg:        cfg.Sanitize(),
		logger:     logger.With(slog.String("component", "hub")),
	}
}

// Bind sets the receiver of connection events.
func (h *Hub) Bind(lc Lifecycle) {
	h.lifecycle = lc
}

// OnDrop sets a hook called whenever an inbound frame is discarded.
func (h *Hub) OnDrop(fn func(reason string)) {
	h.onDrop = fn
}

func (h *Hub) dropped(reason string) {
	if h.onDrop != nil {
		h.onDrop(reason)
	}
}

// Register hands a freshly upgraded client to the hub.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// leave schedules a client's teardown. Once Run has returned the teardown
// runs inline.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		h.disconnect(client)
	}
}

// Send queues payload for the client with the given id without blocking.
// A client whose queue is full is evicted.
func (h *Hub) Send(connID string, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("recovered from panic in send", slog.String("conn_id", connID), slog.Any("panic", r))
			err = fmt.Errorf("server: send to %s: %v", connID, r)
		}
	}()

	// Hold the read lock for the whole send so disconnect cannot close the
	// channel underneath us.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	client, exists := h.clients[connID]
	if !exists || client.closed {
		return ErrClientGone
	}

	select {
	case client.send <- payload:
		return nil
	default:
		client.evictOnce.Do(func() {
			h.logger.Warn("evicting client with full send buffer", slog.String("conn_id", connID), slog.String("remote_addr", client.addr))
			go h.leave(client)
		})
		return ErrSendBufferFull
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. It returns after Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.logger.Warn("received nil client registration; skipping")
				continue
			}
			h.connect(client)

		case client := <-h.unregister:
			h.disconnect(client)
		}
	}
}

func (h *Hub) connect(client *Client) {
	h.mutex.Lock()
	if _, exists := h.clients[client.id]; exists {
		h.mutex.Unlock()
		h.logger.Warn("duplicate client id; closing connection", slog.String("conn_id", client.id))
		client.closeConnection()
		return
	}
	client.closed = false
	h.clients[client.id] = client
	h.mutex.Unlock()

	// The client must be reachable through Send before OnOpen greets it.
	if h.lifecycle != nil {
		if err := h.lifecycle.OnOpen(h.ctx, client.id); err != nil {
			h.mutex.Lock()
			delete(h.clients, client.id)
			client.closed = true
			h.mutex.Unlock()
			close(client.send)
			client.closeConnection()
			return
		}
	}

	h.logger.Info("client registered",
		slog.String("conn_id", client.id),
		slog.String("remote_addr", client.addr),
		slog.Int("clients", h.Len()),
	)

	if client.conn == nil {
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) disconnect(client *Client) {
	if h.lifecycle != nil {
		h.lifecycle.OnClose(client.id)
	}

	h.mutex.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client || client.closed {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	h.logger.Info("client unregistered",
		slog.String("conn_id", client.id),
		slog.String("remote_addr", client.addr),
		slog.Int("clients", clientCount),
	)
}

// shutdownClients closes every socket; the read pumps then run the normal
// teardown path.
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		client.closeConnection()
	}

	h.logger.Info("closed client connections", slog.Int("count", len(clients)))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
