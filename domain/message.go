// Package domain contains core concepts of the chat relay.
// This file defines the transient Message and its identifier.
// Messages are never retained by the relay once broadcast.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageID is opaque to the relay. Ids supplied back by clients (reactions) are never validated.
type MessageID string

// Message only lives for the duration of a single broadcast.
type Message struct {
	ID        MessageID
	Room      RoomName
	SenderID  ConnectionID
	Sender    string
	Content   string
	CreatedAt time.Time
}

// NewMessageID builds an id made of the creation time in milliseconds and a random suffix.
func NewMessageID(at time.Time) MessageID {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return MessageID(fmt.Sprintf("%d-%s", at.UnixMilli(), suffix))
}
