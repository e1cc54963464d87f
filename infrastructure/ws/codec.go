package ws

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Envelope is the frame exchanged in both directions: {"type": "...", "payload": {...}}.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound payloads.

type JoinPayload struct {
	DisplayName string `json:"displayName"`
	Room        string `json:"room"`
}

type SendMessagePayload struct {
	Text string `json:"text"`
}

type SendPrivatePayload struct {
	TargetConnectionID string `json:"targetConnectionId"`
	Text               string `json:"text"`
}

type ReactPayload struct {
	MessageID string `json:"messageId"`
	Tag       string `json:"tag"`
}

// Outbound payloads.

type MemberPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ConnectedPayload struct {
	ConnectionID    string `json:"connectionId"`
	TypingTimeoutMs int64  `json:"typingTimeout"`
}

type JoinConfirmationPayload struct {
	Room    string          `json:"room"`
	Members []MemberPayload `json:"members"`
}

type JoinAnnouncementPayload struct {
	JoinerName string          `json:"joinerName"`
	Members    []MemberPayload `json:"members"`
	Message    string          `json:"message"`
	Timestamp  time.Time       `json:"timestamp"`
}

type MembershipSnapshotPayload struct {
	Members []MemberPayload `json:"members"`
}

type MessageDeliveredPayload struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
}

type TypingStatePayload struct {
	Name     string `json:"name"`
	IsTyping bool   `json:"isTyping"`
}

type PrivateMessagePayload struct {
	ID        string    `json:"id"`
	FromName  string    `json:"fromName"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type ReactionUpdatePayload struct {
	MessageID   string `json:"messageId"`
	Tag         string `json:"tag"`
	ReactorName string `json:"reactorName"`
}

type AutoReadReceiptPayload struct {
	MessageID  string `json:"messageId"`
	ReaderName string `json:"readerName"`
}

type LeaveAnnouncementPayload struct {
	LeaverName string          `json:"leaverName"`
	Members    []MemberPayload `json:"members"`
	Message    string          `json:"message"`
	Timestamp  time.Time       `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// DecodeCommand turns an inbound frame into a command.
// A join whose payload can't be decoded fails with ErrInvalidJoin, so that the caller can report it.
func DecodeCommand(data []byte) (domain.Command, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEnvelope, err)
	}
	kind, ok := domain.ParseKind(env.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, env.Type)
	}

	switch kind {
	case domain.KindJoin:
		var p JoinPayload
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidJoin, err)
		}
		return domain.JoinCommand{DisplayName: p.DisplayName, Room: domain.RoomName(p.Room)}, nil
	case domain.KindSendMessage:
		var p SendMessagePayload
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, malformed(kind, err)
		}
		return domain.SendMessageCommand{Text: p.Text}, nil
	case domain.KindTypingStart:
		return domain.TypingCommand{Typing: true}, nil
	case domain.KindTypingStop:
		return domain.TypingCommand{Typing: false}, nil
	case domain.KindSendPrivate:
		var p SendPrivatePayload
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, malformed(kind, err)
		}
		return domain.SendPrivateCommand{Target: domain.ConnectionID(p.TargetConnectionID), Text: p.Text}, nil
	case domain.KindReact:
		var p ReactPayload
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, malformed(kind, err)
		}
		return domain.ReactCommand{MessageID: domain.MessageID(p.MessageID), Tag: p.Tag}, nil
	case domain.KindDisconnect:
		return domain.DisconnectCommand{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, env.Type)
	}
}

// EncodeCommand is the client side of DecodeCommand.
func EncodeCommand(cmd domain.Command) ([]byte, error) {
	var payload any
	switch c := cmd.(type) {
	case domain.JoinCommand:
		payload = JoinPayload{DisplayName: c.DisplayName, Room: string(c.Room)}
	case domain.SendMessageCommand:
		payload = SendMessagePayload{Text: c.Text}
	case domain.SendPrivateCommand:
		payload = SendPrivatePayload{TargetConnectionID: string(c.Target), Text: c.Text}
	case domain.ReactCommand:
		payload = ReactPayload{MessageID: string(c.MessageID), Tag: c.Tag}
	case domain.TypingCommand, domain.DisconnectCommand:
	default:
		return nil, fmt.Errorf("%w: %T", errors.ErrUnknownEvent, cmd)
	}
	return encode(cmd.Kind().String(), payload)
}

// EncodeEvent turns an outbound event into a frame.
func EncodeEvent(evt event.DomainEvent) ([]byte, error) {
	var payload any
	switch e := evt.(type) {
	case event.Connected:
		payload = ConnectedPayload{ConnectionID: string(e.ConnectionID), TypingTimeoutMs: e.TypingTimeout.Milliseconds()}
	case event.JoinConfirmation:
		payload = JoinConfirmationPayload{Room: string(e.Room), Members: toMembers(e.Members)}
	case event.JoinAnnouncement:
		payload = JoinAnnouncementPayload{JoinerName: e.JoinerName, Members: toMembers(e.Members), Message: e.Message, Timestamp: e.At}
	case event.MembershipSnapshot:
		payload = MembershipSnapshotPayload{Members: toMembers(e.Members)}
	case event.MessageDelivered:
		payload = MessageDeliveredPayload{ID: string(e.ID), Sender: e.Sender, Text: e.Text, Room: string(e.Room), Timestamp: e.At}
	case event.TypingState:
		payload = TypingStatePayload{Name: e.Username, IsTyping: e.IsTyping}
	case event.PrivateMessageDelivered:
		payload = toPrivateMessage(e.PrivateMessage)
	case event.PrivateMessageSent:
		payload = toPrivateMessage(e.PrivateMessage)
	case event.ReactionUpdate:
		payload = ReactionUpdatePayload{MessageID: string(e.MessageID), Tag: e.Tag, ReactorName: e.ReactorName}
	case event.AutoReadReceipt:
		payload = AutoReadReceiptPayload{MessageID: string(e.MessageID), ReaderName: e.ReaderName}
	case event.LeaveAnnouncement:
		payload = LeaveAnnouncementPayload{LeaverName: e.LeaverName, Members: toMembers(e.Members), Message: e.Message, Timestamp: e.At}
	case event.Error:
		payload = ErrorPayload{Message: e.Message}
	default:
		return nil, fmt.Errorf("%w: %T", errors.ErrUnknownEvent, evt)
	}
	return encode(string(evt.Name()), payload)
}

// DecodeEvent is the client side of EncodeEvent.
func DecodeEvent(data []byte) (event.DomainEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEnvelope, err)
	}

	var evt event.DomainEvent
	var err error
	switch event.Name(env.Type) {
	case event.ConnectedName:
		var p ConnectedPayload
		if p, err = payloadOf[ConnectedPayload](env); err == nil {
			evt = event.Connected{ConnectionID: domain.ConnectionID(p.ConnectionID), TypingTimeout: time.Duration(p.TypingTimeoutMs) * time.Millisecond}
		}
	case event.JoinConfirmationName:
		var p JoinConfirmationPayload
		if p, err = payloadOf[JoinConfirmationPayload](env); err == nil {
			evt = event.JoinConfirmation{Room: domain.RoomName(p.Room), Members: fromMembers(p.Members)}
		}
	case event.JoinAnnouncementName:
		var p JoinAnnouncementPayload
		if p, err = payloadOf[JoinAnnouncementPayload](env); err == nil {
			evt = event.JoinAnnouncement{JoinerName: p.JoinerName, Members: fromMembers(p.Members), Message: p.Message, At: p.Timestamp}
		}
	case event.MembershipSnapshotName:
		var p MembershipSnapshotPayload
		if p, err = payloadOf[MembershipSnapshotPayload](env); err == nil {
			evt = event.MembershipSnapshot{Members: fromMembers(p.Members)}
		}
	case event.MessageDeliveredName:
		var p MessageDeliveredPayload
		if p, err = payloadOf[MessageDeliveredPayload](env); err == nil {
			evt = event.MessageDelivered{ID: domain.MessageID(p.ID), Sender: p.Sender, Text: p.Text, Room: domain.RoomName(p.Room), At: p.Timestamp}
		}
	case event.TypingStateName:
		var p TypingStatePayload
		if p, err = payloadOf[TypingStatePayload](env); err == nil {
			evt = event.TypingState{Username: p.Name, IsTyping: p.IsTyping}
		}
	case event.PrivateMessageDeliveredName:
		var p PrivateMessagePayload
		if p, err = payloadOf[PrivateMessagePayload](env); err == nil {
			evt = event.PrivateMessageDelivered{PrivateMessage: fromPrivateMessage(p)}
		}
	case event.PrivateMessageSentName:
		var p PrivateMessagePayload
		if p, err = payloadOf[PrivateMessagePayload](env); err == nil {
			evt = event.PrivateMessageSent{PrivateMessage: fromPrivateMessage(p)}
		}
	case event.ReactionUpdateName:
		var p ReactionUpdatePayload
		if p, err = payloadOf[ReactionUpdatePayload](env); err == nil {
			evt = event.ReactionUpdate{MessageID: domain.MessageID(p.MessageID), Tag: p.Tag, ReactorName: p.ReactorName}
		}
	case event.AutoReadReceiptName:
		var p AutoReadReceiptPayload
		if p, err = payloadOf[AutoReadReceiptPayload](env); err == nil {
			evt = event.AutoReadReceipt{MessageID: domain.MessageID(p.MessageID), ReaderName: p.ReaderName}
		}
	case event.LeaveAnnouncementName:
		var p LeaveAnnouncementPayload
		if p, err = payloadOf[LeaveAnnouncementPayload](env); err == nil {
			evt = event.LeaveAnnouncement{LeaverName: p.LeaverName, Members: fromMembers(p.Members), Message: p.Message, At: p.Timestamp}
		}
	case event.ErrorName:
		var p ErrorPayload
		if p, err = payloadOf[ErrorPayload](env); err == nil {
			evt = event.Error{Message: p.Message}
		}
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, env.Type)
	}
	if err != nil {
		return nil, err
	}
	return evt, nil
}

func payloadOf[T any](env Envelope) (T, error) {
	var p T
	if err := decodePayload(env.Payload, &p); err != nil {
		return p, fmt.Errorf("%w: %s: %v", errors.ErrMalformedEnvelope, env.Type, err)
	}
	return p, nil
}

func encode(name string, payload any) ([]byte, error) {
	env := Envelope{Type: name}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

func decodePayload(raw json.RawMessage, target any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload")
	}
	return json.Unmarshal(raw, target)
}

func malformed(kind domain.Kind, err error) error {
	return fmt.Errorf("%w: %s: %v", errors.ErrMalformedEnvelope, kind, err)
}

func toMembers(members []domain.Member) []MemberPayload {
	return lo.Map(members, func(m domain.Member, _ int) MemberPayload {
		return MemberPayload{ID: string(m.ID), Name: m.Name}
	})
}

func toPrivateMessage(pm event.PrivateMessage) PrivateMessagePayload {
	return PrivateMessagePayload{ID: string(pm.ID), FromName: pm.FromName, Text: pm.Text, Timestamp: pm.At}
}

func fromMembers(members []MemberPayload) []domain.Member {
	return lo.Map(members, func(m MemberPayload, _ int) domain.Member {
		return domain.Member{ID: domain.ConnectionID(m.ID), Name: m.Name}
	})
}

func fromPrivateMessage(p PrivateMessagePayload) event.PrivateMessage {
	return event.PrivateMessage{ID: domain.MessageID(p.ID), FromName: p.FromName, Text: p.Text, At: p.Timestamp}
}
