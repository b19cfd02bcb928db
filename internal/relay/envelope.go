package relay

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ScopeKind selects how an envelope's recipients are resolved.
type ScopeKind int

const (
	// ScopeAll targets every registered connection.
	ScopeAll ScopeKind = iota
	// ScopeRoom targets the members of one room.
	ScopeRoom
	// ScopeDirect targets a single connection.
	ScopeDirect
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeAll:
		return "broadcast"
	case ScopeRoom:
		return "room"
	case ScopeDirect:
		return "direct"
	default:
		return "unknown"
	}
}

const (
	scopeAllText    = "broadcast-all"
	scopeRoomPrefix = "room:"
	scopeConnPrefix = "direct:"
)

// Scope is the routing target of an envelope.
type Scope struct {
	Kind   ScopeKind
	Target string
}

// Broadcast returns the scope addressing all live connections.
func Broadcast() Scope {
	return Scope{Kind: ScopeAll}
}

// Room returns the scope addressing the members of room.
func Room(room string) Scope {
	return Scope{Kind: ScopeRoom, Target: room}
}

// Direct returns the scope addressing a single connection.
func Direct(connID string) Scope {
	return Scope{Kind: ScopeDirect, Target: connID}
}

// ParseScope parses "broadcast-all", "room:<id>" or "direct:<id>".
func ParseScope(s string) (Scope, error) {
	switch {
	case s == scopeAllText:
		return Broadcast(), nil
	case strings.HasPrefix(s, scopeRoomPrefix):
		room := strings.TrimPrefix(s, scopeRoomPrefix)
		if room == "" {
			return Scope{}, fmt.Errorf("relay: parse scope %q: %w", s, ErrInvalidID)
		}
		return Room(room), nil
	case strings.HasPrefix(s, scopeConnPrefix):
		id := strings.TrimPrefix(s, scopeConnPrefix)
		if id == "" {
			return Scope{}, fmt.Errorf("relay: parse scope %q: %w", s, ErrInvalidID)
		}
		return Direct(id), nil
	default:
		return Scope{}, fmt.Errorf("relay: unknown scope %q", s)
	}
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeRoom:
		return scopeRoomPrefix + s.Target
	case ScopeDirect:
		return scopeConnPrefix + s.Target
	default:
		return scopeAllText
	}
}

// Envelope is one outbound message and its delivery scope.
type Envelope struct {
	// ID identifies the envelope in logs and reports.
	ID      string
	Scope   Scope
	Sender  string
	Payload []byte
}

// NewEnvelope builds an envelope with a fresh id.
func NewEnvelope(scope Scope, sender string, payload []byte) Envelope {
	return Envelope{
		ID:      uuid.NewString(),
		Scope:   scope,
		Sender:  sender,
		Payload: payload,
	}
}
