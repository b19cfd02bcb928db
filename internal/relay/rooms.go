package relay

import "sync"

type roomShard struct {
	mu    sync.RWMutex
	rooms map[string]Set
}

type memberShard struct {
	mu    sync.Mutex
	conns map[string]Set
}

// RoomIndex maps room ids to member connection ids and keeps the reverse
// mapping for LeaveAll. Rooms exist only while they have members.
//
// Lock order is member shard, then room shard. At most one room shard is held
// at a time.
type RoomIndex struct {
	rooms   [shardCount]roomShard
	members [shardCount]memberShard
}

// NewRoomIndex creates an empty RoomIndex.
func NewRoomIndex() *RoomIndex {
	idx := &RoomIndex{}
	for i := range idx.rooms {
		idx.rooms[i].rooms = make(map[string]Set)
		idx.members[i].conns = make(map[string]Set)
	}
	return idx
}

func (idx *RoomIndex) roomShard(room string) *roomShard {
	return &idx.rooms[shardIndex(room)]
}

func (idx *RoomIndex) memberShard(connID string) *memberShard {
	return &idx.members[shardIndex(connID)]
}

// Join adds connID to room. Joining a room twice is a no-op.
func (idx *RoomIndex) Join(room, connID string) error {
	if room == "" || connID == "" {
		return ErrInvalidID
	}

	ms := idx.memberShard(connID)
	ms.mu.Lock()
	defer ms.mu.Unlock()

	joined := ms.conns[connID]
	if joined.Has(room) {
		return nil
	}

	rs := idx.roomShard(room)
	rs.mu.Lock()
	members := rs.rooms[room]
	if members == nil {
		members = make(Set)
		rs.rooms[room] = members
	}
	members[connID] = struct{}{}
	rs.mu.Unlock()

	if joined == nil {
		joined = make(Set)
		ms.conns[connID] = joined
	}
	joined[room] = struct{}{}
	return nil
}

// Leave removes connID from room. Leaving a room that was not joined is a no-op.
func (idx *RoomIndex) Leave(room, connID string) error {
	if room == "" || connID == "" {
		return ErrInvalidID
	}

	ms := idx.memberShard(connID)
	ms.mu.Lock()
	defer ms.mu.Unlock()

	joined := ms.conns[connID]
	if !joined.Has(room) {
		return nil
	}

	idx.removeMember(room, connID)

	delete(joined, room)
	if len(joined) == 0 {
		delete(ms.conns, connID)
	}
	return nil
}

// LeaveAll removes connID from every room, pruning rooms left empty.
func (idx *RoomIndex) LeaveAll(connID string) {
	if connID == "" {
		return
	}

	ms := idx.memberShard(connID)
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for room := range ms.conns[connID] {
		idx.removeMember(room, connID)
	}
	delete(ms.conns, connID)
}

func (idx *RoomIndex) removeMember(room, connID string) {
	rs := idx.roomShard(room)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	members := rs.rooms[room]
	delete(members, connID)
	if len(members) == 0 {
		delete(rs.rooms, room)
	}
}

// MembersOf returns a copy of the room's member set. Unknown rooms yield an
// empty set.
func (idx *RoomIndex) MembersOf(room string) Set {
	rs := idx.roomShard(room)
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	members, ok := rs.rooms[room]
	if !ok {
		return Set{}
	}
	return members.clone()
}

// Contains reports whether connID is a member of room.
func (idx *RoomIndex) Contains(room, connID string) bool {
	rs := idx.roomShard(room)
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	return rs.rooms[room].Has(connID)
}

// RoomsOf returns the rooms connID has joined.
func (idx *RoomIndex) RoomsOf(connID string) Set {
	ms := idx.memberShard(connID)
	ms.mu.Lock()
	defer ms.mu.Unlock()

	joined, ok := ms.conns[connID]
	if !ok {
		return Set{}
	}
	return joined.clone()
}

// Size returns the number of members in room.
func (idx *RoomIndex) Size(room string) int {
	rs := idx.roomShard(room)
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	return len(rs.rooms[room])
}

// Len returns the number of non-empty rooms.
func (idx *RoomIndex) Len() int {
	n := 0
	for i := range idx.rooms {
		rs := &idx.rooms[i]
		rs.mu.RLock()
		n += len(rs.rooms)
		rs.mu.RUnlock()
	}
	return n
}
