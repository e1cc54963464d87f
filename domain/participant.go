// Package domain contains core concepts of the chat relay.
// This file defines Connection entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// ConnectionID identifies one live transport session. It is assigned by the transport.
type ConnectionID string

// Connection is the registry record of a joined session.
// A connection belongs to at most one room at a time.
type Connection struct {
	ID       ConnectionID
	Name     string // display name, not unique
	Room     RoomName
	JoinedAt time.Time
}

// Member returns the public view of the connection used in member lists.
func (c Connection) Member() Member {
	return Member{ID: c.ID, Name: c.Name}
}

// Member is an entry of a room member list.
type Member struct {
	ID   ConnectionID
	Name string
}
