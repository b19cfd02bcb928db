package relay

import (
	"iter"
	"sync"
	"time"
)

// State is the lifecycle state of a Connection.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is one live session tracked by the Registry.
type Connection struct {
	id       string
	openedAt time.Time

	// mu serializes lifecycle changes and room membership changes for this id.
	mu    sync.Mutex
	state State
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// OpenedAt returns the time the connection was registered.
func (c *Connection) OpenedAt() time.Time {
	return c.openedAt
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cleaner removes a connection from every room it belongs to.
type Cleaner interface {
	LeaveAll(connID string)
}

type registryShard struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// Registry tracks live connections. Mutations lock only the shard owning the
// affected id.
type Registry struct {
	shards  [shardCount]registryShard
	cleaner Cleaner
}

// NewRegistry creates an empty Registry. When cleaner is non-nil, Unregister
// removes the connection from all rooms before it returns.
func NewRegistry(cleaner Cleaner) *Registry {
	r := &Registry{cleaner: cleaner}
	for i := range r.shards {
		r.shards[i].conns = make(map[string]*Connection)
	}
	return r
}

func (r *Registry) shard(id string) *registryShard {
	return &r.shards[shardIndex(id)]
}

// Register adds a connection in the connecting state.
func (r *Registry) Register(id string) error {
	_, err := r.add(id)
	return err
}

func (r *Registry) add(id string) (*Connection, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conns[id]; exists {
		return nil, ErrAlreadyExists
	}

	conn := &Connection{id: id, openedAt: time.Now(), state: StateConnecting}
	s.conns[id] = conn
	return conn, nil
}

// Unregister removes a connection and all of its room memberships.
func (r *Registry) Unregister(id string) error {
	conn, ok := r.lookup(id)
	if !ok {
		return ErrNotFound
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	conn.state = StateClosed
	return r.removeHeld(conn)
}

// removeHeld deletes conn from its shard. The caller must hold conn.mu.
func (r *Registry) removeHeld(conn *Connection) error {
	s := r.shard(conn.id)
	s.mu.Lock()
	defer s.mu.Unlock()

	// The id may already belong to a newer session.
	if current, ok := s.conns[conn.id]; !ok || current != conn {
		return ErrNotFound
	}

	if r.cleaner != nil {
		r.cleaner.LeaveAll(conn.id)
	}
	delete(s.conns, conn.id)
	return nil
}

func (r *Registry) lookup(id string) (*Connection, bool) {
	s := r.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.conns[id]
	return conn, ok
}

// Exists reports whether id is registered.
func (r *Registry) Exists(id string) bool {
	_, ok := r.lookup(id)
	return ok
}

// Lookup returns the registered connection for id.
func (r *Registry) Lookup(id string) (*Connection, bool) {
	return r.lookup(id)
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		n += len(s.conns)
		s.mu.RUnlock()
	}
	return n
}

// snapshot read-locks every shard in index order so the result reflects a
// single point in time.
func (r *Registry) snapshot() []string {
	for i := range r.shards {
		r.shards[i].mu.RLock()
	}

	n := 0
	for i := range r.shards {
		n += len(r.shards[i].conns)
	}
	ids := make([]string, 0, n)
	for i := range r.shards {
		for id := range r.shards[i].conns {
			ids = append(ids, id)
		}
	}

	for i := range r.shards {
		r.shards[i].mu.RUnlock()
	}
	return ids
}

// All returns the ids registered at call time. The sequence can be ranged
// over any number of times; later registrations do not affect it.
func (r *Registry) All() iter.Seq[string] {
	ids := r.snapshot()
	return func(yield func(string) bool) {
		for _, id := range ids {
			if !yield(id) {
				return
			}
		}
	}
}

// ForEach calls visit for each id registered at call time until visit
// returns false.
func (r *Registry) ForEach(visit func(id string) bool) {
	for id := range r.All() {
		if !visit(id) {
			return
		}
	}
}
