package relay

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// transitions lists the states reachable from each state. Closed is terminal.
var transitions = map[State][]State{
	StateConnecting: {StateOpen, StateClosing},
	StateOpen:       {StateClosing},
	StateClosing:    {StateClosed},
}

// transition moves conn to the next state. The caller must hold conn.mu.
func (c *Connection) transition(to State) error {
	if !slices.Contains(transitions[c.state], to) {
		return &TransitionError{ConnID: c.id, From: c.state, To: to}
	}
	c.state = to
	return nil
}

const connectedGreeting = "You are connected to the server!"

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the coordinator's logger.
func WithCoordinatorLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// Coordinator applies transport lifecycle events and client commands to the
// Registry and RoomIndex, and routes the resulting envelopes.
type Coordinator struct {
	registry *Registry
	rooms    *RoomIndex
	router   *Router
	logger   *slog.Logger
}

// NewCoordinator creates a Coordinator over shared registry, rooms and router.
func NewCoordinator(registry *Registry, rooms *RoomIndex, router *Router, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		registry: registry,
		rooms:    rooms,
		router:   router,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnOpen registers a connection whose handshake completed and greets it.
// ErrAlreadyExists means the attempt must be dropped by the transport.
func (c *Coordinator) OnOpen(ctx context.Context, connID string) error {
	conn, err := c.registry.add(connID)
	if err != nil {
		c.logger.Warn("connection rejected", slog.String("conn_id", connID), slog.Any("error", err))
		return fmt.Errorf("open %q: %w", connID, err)
	}

	conn.mu.Lock()
	err = conn.transition(StateOpen)
	conn.mu.Unlock()
	if err != nil {
		return err
	}

	c.logger.Info("connection opened", slog.String("conn_id", connID), slog.Int("connections", c.registry.Len()))
	c.reply(ctx, connID, EventConnected, connectedGreeting, "")
	return nil
}

// OnClosing records that either end initiated a close. Joins are refused
// from this point.
func (c *Coordinator) OnClosing(connID string) {
	conn, ok := c.registry.lookup(connID)
	if !ok {
		return
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.state == StateOpen || conn.state == StateConnecting {
		_ = conn.transition(StateClosing)
	}
}

// OnClose tears a connection down: it leaves every room and is unregistered
// as one step with respect to joins for the same id.
func (c *Coordinator) OnClose(connID string) {
	conn, ok := c.registry.lookup(connID)
	if !ok {
		return
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	if conn.state == StateClosed {
		return
	}
	if conn.state != StateClosing {
		_ = conn.transition(StateClosing)
	}
	_ = conn.transition(StateClosed)

	rooms := c.rooms.RoomsOf(connID).Len()
	c.rooms.LeaveAll(connID)
	if err := c.registry.removeHeld(conn); err != nil {
		c.logger.Debug("connection already removed", slog.String("conn_id", connID), slog.Any("error", err))
	}

	c.logger.Info("connection closed",
		slog.String("conn_id", connID),
		slog.Int("rooms_left", rooms),
		slog.Int("connections", c.registry.Len()),
	)
}

// withOpen runs fn while holding the connection's lock, provided it is open.
func (c *Coordinator) withOpen(connID string, fn func() error) error {
	conn, ok := c.registry.lookup(connID)
	if !ok {
		return ErrNotFound
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	if conn.state != StateOpen {
		return ErrConnectionClosed
	}
	return fn()
}

// OnJoin adds the connection to room and acknowledges to that connection only.
func (c *Coordinator) OnJoin(ctx context.Context, connID, room string) error {
	err := c.withOpen(connID, func() error {
		return c.rooms.Join(room, connID)
	})
	if err != nil {
		c.logger.Debug("join ignored", slog.String("conn_id", connID), slog.String("room", room), slog.Any("error", err))
		return err
	}

	c.logger.Debug("room joined", slog.String("conn_id", connID), slog.String("room", room), slog.Int("members", c.rooms.Size(room)))
	c.reply(ctx, connID, EventJoined, "Joined room "+room, room)
	return nil
}

// OnLeave removes the connection from room and acknowledges to that
// connection only.
func (c *Coordinator) OnLeave(ctx context.Context, connID, room string) error {
	err := c.withOpen(connID, func() error {
		return c.rooms.Leave(room, connID)
	})
	if err != nil {
		c.logger.Debug("leave ignored", slog.String("conn_id", connID), slog.String("room", room), slog.Any("error", err))
		return err
	}

	c.reply(ctx, connID, EventLeft, "Left room "+room, room)
	return nil
}

// OnMessage broadcasts text to all connections.
func (c *Coordinator) OnMessage(ctx context.Context, connID, text string) DeliveryReport {
	if !c.registry.Exists(connID) {
		c.logger.Debug("message from unknown connection ignored", slog.String("conn_id", connID))
		return DeliveryReport{Scope: Broadcast()}
	}

	payload, err := EncodeFrame(EventMessage, text, "")
	if err != nil {
		c.logger.Error("message dropped", slog.String("conn_id", connID), slog.Any("error", err))
		return DeliveryReport{}
	}
	return c.router.Route(ctx, NewEnvelope(Broadcast(), connID, payload))
}

// OnRoomMessage sends text to the members of room. Senders outside the room
// are ignored.
func (c *Coordinator) OnRoomMessage(ctx context.Context, connID, room, text string) DeliveryReport {
	if !c.rooms.Contains(room, connID) {
		c.logger.Debug("room message ignored", slog.String("conn_id", connID), slog.String("room", room))
		return DeliveryReport{Scope: Room(room)}
	}

	payload, err := EncodeFrame(EventMessage, text, room)
	if err != nil {
		c.logger.Error("message dropped", slog.String("conn_id", connID), slog.Any("error", err))
		return DeliveryReport{Scope: Room(room)}
	}
	return c.router.Route(ctx, NewEnvelope(Room(room), connID, payload))
}

// Dispatch parses a raw client frame and applies it. It reports false when
// the frame was malformed and therefore ignored.
func (c *Coordinator) Dispatch(ctx context.Context, connID string, raw []byte) bool {
	cmd, ok := ParseCommand(raw)
	if !ok {
		c.logger.Debug("frame ignored", slog.String("conn_id", connID), slog.Int("bytes", len(raw)))
		return false
	}

	switch cmd.Kind {
	case CommandJoin:
		_ = c.OnJoin(ctx, connID, cmd.Room)
	case CommandLeave:
		_ = c.OnLeave(ctx, connID, cmd.Room)
	case CommandMessage:
		if cmd.Room != "" {
			c.OnRoomMessage(ctx, connID, cmd.Room, cmd.Text)
		} else {
			c.OnMessage(ctx, connID, cmd.Text)
		}
	}
	return true
}

func (c *Coordinator) reply(ctx context.Context, connID, event, message, room string) {
	payload, err := EncodeFrame(event, message, room)
	if err != nil {
		c.logger.Error("reply dropped", slog.String("conn_id", connID), slog.String("event", event), slog.Any("error", err))
		return
	}
	report := c.router.Route(ctx, NewEnvelope(Direct(connID), connID, payload))
	if report.Failed > 0 {
		c.logger.Debug("reply not delivered", slog.String("conn_id", connID), slog.String("event", event), slog.Any("error", report.Err()))
	}
}
