package relay

import (
	"context"
	"fmt"
	"log/slog"
)

// Sender hands a payload to the transport for one connection. Implementations
// must not block on the network.
type Sender interface {
	Send(connID string, payload []byte) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(connID string, payload []byte) error

func (f SenderFunc) Send(connID string, payload []byte) error {
	return f(connID, payload)
}

// Observer receives every delivery report produced by a Router.
type Observer interface {
	ObserveDelivery(env Envelope, report DeliveryReport)
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithExcludeSender controls whether broadcast-all skips the sender.
// Room and direct scopes are unaffected.
func WithExcludeSender(exclude bool) RouterOption {
	return func(r *Router) { r.excludeSender = exclude }
}

// WithObserver registers an observer for delivery reports.
func WithObserver(o Observer) RouterOption {
	return func(r *Router) { r.observer = o }
}

// WithRouterLogger sets the router's logger.
func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// Router resolves envelope scopes to connections and dispatches delivery.
type Router struct {
	registry      *Registry
	rooms         *RoomIndex
	sender        Sender
	excludeSender bool
	observer      Observer
	logger        *slog.Logger
}

// NewRouter creates a Router. By default broadcasts exclude the sender.
func NewRouter(registry *Registry, rooms *RoomIndex, sender Sender, opts ...RouterOption) *Router {
	r := &Router{
		registry:      registry,
		rooms:         rooms,
		sender:        sender,
		excludeSender: true,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the connection ids targeted by env at this moment.
func (r *Router) Resolve(env Envelope) []string {
	switch env.Scope.Kind {
	case ScopeRoom:
		return r.rooms.MembersOf(env.Scope.Target).Slice()
	case ScopeDirect:
		if env.Scope.Target == "" {
			return nil
		}
		return []string{env.Scope.Target}
	default:
		targets := make([]string, 0, r.registry.Len())
		for id := range r.registry.All() {
			if r.excludeSender && id == env.Sender {
				continue
			}
			targets = append(targets, id)
		}
		return targets
	}
}

// Route delivers env to every resolved target. A failure for one target is
// recorded and delivery continues with the rest.
func (r *Router) Route(ctx context.Context, env Envelope) DeliveryReport {
	targets := r.Resolve(env)
	report := DeliveryReport{
		EnvelopeID: env.ID,
		Scope:      env.Scope,
		Targeted:   len(targets),
	}

	for _, id := range targets {
		if err := ctx.Err(); err != nil {
			report.recordFailure(id, err)
			continue
		}
		// The target may have disconnected after resolution.
		if !r.registry.Exists(id) {
			report.recordFailure(id, ErrNotFound)
			continue
		}
		if err := r.send(id, env.Payload); err != nil {
			report.recordFailure(id, err)
			continue
		}
		report.recordSuccess()
	}

	r.logger.Debug("envelope routed",
		slog.String("envelope_id", env.ID),
		slog.String("scope", env.Scope.String()),
		slog.String("sender", env.Sender),
		slog.Int("targeted", report.Targeted),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
	)
	if report.Failed > 0 {
		r.logger.Debug("partial delivery", slog.String("envelope_id", env.ID), slog.Any("error", report.Err()))
	}

	if r.observer != nil {
		r.observer.ObserveDelivery(env, report)
	}
	return report
}

func (r *Router) send(connID string, payload []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("relay: send panicked: %v", rec)
		}
	}()
	return r.sender.Send(connID, payload)
}
