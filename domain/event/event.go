package event

import (
	"chat-relay/domain"
	"time"
)

// Name is the wire name of an outbound event.
type Name string

const (
	ConnectedName               Name = "connected"
	JoinConfirmationName        Name = "join-confirmation"
	JoinAnnouncementName        Name = "join-announcement"
	MembershipSnapshotName      Name = "membership-snapshot"
	MessageDeliveredName        Name = "message-delivered"
	TypingStateName             Name = "typing-state"
	PrivateMessageDeliveredName Name = "private-message-delivered"
	PrivateMessageSentName      Name = "private-message-sent"
	ReactionUpdateName          Name = "reaction-update"
	AutoReadReceiptName         Name = "auto-read-receipt"
	LeaveAnnouncementName       Name = "leave-announcement"
	ErrorName                   Name = "error"
)

// DomainEvent is anything the relay pushes to a connection.
type DomainEvent interface {
	Name() Name
}

// Connected greets a freshly upgraded connection with its id,
// so that peers can address it with private messages.
type Connected struct {
	ConnectionID  domain.ConnectionID
	TypingTimeout time.Duration
}

func (Connected) Name() Name { return ConnectedName }

type JoinConfirmation struct {
	Room    domain.RoomName
	Members []domain.Member
}

func (JoinConfirmation) Name() Name { return JoinConfirmationName }

type JoinAnnouncement struct {
	JoinerName string
	Members    []domain.Member
	Message    string
	At         time.Time
}

func (JoinAnnouncement) Name() Name { return JoinAnnouncementName }

type MembershipSnapshot struct {
	Members []domain.Member
}

func (MembershipSnapshot) Name() Name { return MembershipSnapshotName }

type MessageDelivered struct {
	ID     domain.MessageID
	Sender string
	Text   string
	Room   domain.RoomName
	At     time.Time
}

func (MessageDelivered) Name() Name { return MessageDeliveredName }

type TypingState struct {
	Username string
	IsTyping bool
}

func (TypingState) Name() Name { return TypingStateName }

// PrivateMessage is the payload shared by the delivered and sent variants.
type PrivateMessage struct {
	ID       domain.MessageID
	FromName string
	Text     string
	At       time.Time
}

type PrivateMessageDelivered struct {
	PrivateMessage
}

func (PrivateMessageDelivered) Name() Name { return PrivateMessageDeliveredName }

type PrivateMessageSent struct {
	PrivateMessage
}

func (PrivateMessageSent) Name() Name { return PrivateMessageSentName }

type ReactionUpdate struct {
	MessageID   domain.MessageID
	Tag         string
	ReactorName string
}

func (ReactionUpdate) Name() Name { return ReactionUpdateName }

type AutoReadReceipt struct {
	MessageID  domain.MessageID
	ReaderName string
}

func (AutoReadReceipt) Name() Name { return AutoReadReceiptName }

type LeaveAnnouncement struct {
	LeaverName string
	Members    []domain.Member
	Message    string
	At         time.Time
}

func (LeaveAnnouncement) Name() Name { return LeaveAnnouncementName }

// Error is only ever sent back to a connection whose join was rejected.
type Error struct {
	Message string
}

func (Error) Name() Name { return ErrorName }
