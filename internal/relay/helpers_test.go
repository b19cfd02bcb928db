package relay

import (
	"errors"
	"sync"
)

var errSendFailed = errors.New("send buffer full")

// recordingSender captures payloads per connection and fails for ids in fail.
type recordingSender struct {
	mu       sync.Mutex
	received map[string][][]byte
	fail     map[string]error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{
		received: make(map[string][][]byte),
		fail:     make(map[string]error),
	}
}

func (s *recordingSender) Send(connID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fail[connID]; ok {
		return err
	}
	s.received[connID] = append(s.received[connID], payload)
	return nil
}

func (s *recordingSender) failFor(connID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[connID] = err
}

func (s *recordingSender) count(connID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received[connID])
}

func (s *recordingSender) last(connID string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.received[connID]
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = make(map[string][][]byte)
}

type fixture struct {
	rooms       *RoomIndex
	registry    *Registry
	sender      *recordingSender
	router      *Router
	coordinator *Coordinator
}

func newFixture(opts ...RouterOption) *fixture {
	f := &fixture{sender: newRecordingSender()}
	f.rooms = NewRoomIndex()
	f.registry = NewRegistry(f.rooms)
	f.router = NewRouter(f.registry, f.rooms, f.sender, opts...)
	f.coordinator = NewCoordinator(f.registry, f.rooms, f.router)
	return f
}
