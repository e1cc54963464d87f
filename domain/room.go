package domain

// RoomName is the key of a room in the directory.
type RoomName string

// Set is the member set of a room.
type Set map[ConnectionID]struct{}

// Room is a point-in-time view of a room and its members.
// Rooms carry no metadata beyond membership: no owner, no settings, no history.
type Room struct {
	Name    RoomName
	Members []Member
}

// DefaultRooms are advertised to clients for their room picker.
// They are not pre-created: a room only exists while it has members.
var DefaultRooms = []RoomName{"general", "tech", "gaming", "random", "music"}
