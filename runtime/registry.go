package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sort"
	"sync"

	"github.com/samber/lo"
)

type entry struct {
	conn domain.Connection
	seq  uint64
}

// Registry is both the connection registry and the room directory.
// They share one lock so that a join (register + addMember) or a leave
// (removeMember + remove) is never observed half done.
type Registry struct {
	mu          sync.RWMutex
	seq         uint64
	sessions    map[domain.ConnectionID]contract.EventSink // live transport sessions
	connections map[domain.ConnectionID]entry              // joined connections
	roomMembers map[domain.RoomName]domain.Set             // room to connections
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[domain.ConnectionID]contract.EventSink),
		connections: make(map[domain.ConnectionID]entry),
		roomMembers: make(map[domain.RoomName]domain.Set),
	}
}

// Attach binds the outbound sink of a freshly opened session.
// A session can receive direct events before it ever joins a room.
func (r *Registry) Attach(id domain.ConnectionID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = sink
}

func (r *Registry) Detach(id domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Register records the connection and adds it to its room in one critical section.
// A connection joining again under another room name is first removed from its previous room,
// so it never stays listed in two rooms. The previous room is returned when that happens.
func (r *Registry) Register(conn domain.Connection) (domain.RoomName, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var previous domain.RoomName
	moved := false
	seq := r.nextSeq()
	if existing, ok := r.connections[conn.ID]; ok {
		if existing.conn.Room != conn.Room {
			r.removeMember(existing.conn.Room, conn.ID)
			previous, moved = existing.conn.Room, true
		} else {
			seq = existing.seq
		}
	}
	r.connections[conn.ID] = entry{conn: conn, seq: seq}
	r.addMember(conn.Room, conn.ID)
	return previous, moved
}

func (r *Registry) Lookup(id domain.ConnectionID) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.connections[id]
	return e.conn, ok
}

// Remove deletes the connection record and its room membership in one critical section.
// The room entry disappears with its last member.
func (r *Registry) Remove(id domain.ConnectionID) (domain.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.connections[id]
	if !ok {
		return domain.Connection{}, false
	}
	r.removeMember(e.conn.Room, id)
	delete(r.connections, id)
	return e.conn, true
}

// Members returns the member list of a room in join order.
// It returns an empty list when the room doesn't exist.
func (r *Registry) Members(room domain.RoomName) []domain.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members(room)
}

func (r *Registry) Sink(id domain.ConnectionID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[id]
	return sink, ok
}

// SinksForRoom snapshots the sinks of every member of a room except the excluded connection.
// Pass an empty id to include everybody.
func (r *Registry) SinksForRoom(room domain.RoomName, exclude domain.ConnectionID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[room]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(members))
	for _, m := range r.members(room) {
		if m.ID == exclude {
			continue
		}
		if sink, exists := r.sessions[m.ID]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// Rooms lists every existing room sorted by name.
func (r *Registry) Rooms() []domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]domain.Room, 0, len(r.roomMembers))
	for name := range r.roomMembers {
		rooms = append(rooms, domain.Room{Name: name, Members: r.members(name)})
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms
}

// Count returns the number of joined connections and of existing rooms.
func (r *Registry) Count() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections), len(r.roomMembers)
}

func (r *Registry) nextSeq() uint64 {
	r.seq++
	return r.seq
}

func (r *Registry) addMember(room domain.RoomName, id domain.ConnectionID) {
	if _, ok := r.roomMembers[room]; !ok {
		r.roomMembers[room] = make(domain.Set)
	}
	r.roomMembers[room][id] = struct{}{}
}

func (r *Registry) removeMember(room domain.RoomName, id domain.ConnectionID) {
	members, ok := r.roomMembers[room]
	if !ok {
		return
	}
	delete(members, id)

	// If no one is left in the room, remove the room entry entirely
	if len(members) == 0 {
		delete(r.roomMembers, room)
	}
}

// members must be called with the lock held.
func (r *Registry) members(room domain.RoomName) []domain.Member {
	set := r.roomMembers[room]
	entries := make([]entry, 0, len(set))
	for id := range set {
		if e, ok := r.connections[id]; ok {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	return lo.Map(entries, func(e entry, _ int) domain.Member {
		return e.conn.Member()
	})
}
