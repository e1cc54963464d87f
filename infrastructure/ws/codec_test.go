package ws

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeCommand_Every_Kind(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		expected domain.Command
	}{
		{"join", `{"type":"join","payload":{"displayName":"alice","room":"general"}}`, domain.JoinCommand{DisplayName: "alice", Room: "general"}},
		{"send-message", `{"type":"send-message","payload":{"text":"hi"}}`, domain.SendMessageCommand{Text: "hi"}},
		{"typing-start", `{"type":"typing-start"}`, domain.TypingCommand{Typing: true}},
		{"typing-stop", `{"type":"typing-stop"}`, domain.TypingCommand{Typing: false}},
		{"send-private", `{"type":"send-private","payload":{"targetConnectionId":"c2","text":"psst"}}`, domain.SendPrivateCommand{Target: "c2", Text: "psst"}},
		{"react", `{"type":"react","payload":{"messageId":"m1","tag":"👍"}}`, domain.ReactCommand{MessageID: "m1", Tag: "👍"}},
		{"disconnect", `{"type":"disconnect"}`, domain.DisconnectCommand{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tt.frame))
			require.NoError(t, err)
			require.Equal(t, tt.expected, cmd)

			// And the client encoding reads back the same
			frame, err := EncodeCommand(cmd)
			require.NoError(t, err)
			again, err := DecodeCommand(frame)
			require.NoError(t, err)
			require.Equal(t, cmd, again)
		})
	}
}

func TestDecodeCommand_Errors(t *testing.T) {
	req := require.New(t)

	_, err := DecodeCommand([]byte(`not json`))
	req.ErrorIs(err, errors.ErrMalformedEnvelope)

	_, err = DecodeCommand([]byte(`{"type":"dance"}`))
	req.ErrorIs(err, errors.ErrUnknownEvent)

	_, err = DecodeCommand([]byte(`{"type":"join"}`))
	req.ErrorIs(err, errors.ErrInvalidJoin)

	_, err = DecodeCommand([]byte(`{"type":"join","payload":"alice"}`))
	req.ErrorIs(err, errors.ErrInvalidJoin)

	_, err = DecodeCommand([]byte(`{"type":"send-message","payload":{"text":42}}`))
	req.ErrorIs(err, errors.ErrMalformedEnvelope)
}

func TestEncodeEvent_Wire_Format(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	members := []domain.Member{{ID: "c1", Name: "alice"}, {ID: "c2", Name: "bob"}}

	frame, err := EncodeEvent(event.JoinAnnouncement{JoinerName: "bob", Members: members, Message: "bob joined the chat", At: at})
	req.NoError(err)
	req.JSONEq(`{"type":"join-announcement","payload":{
		"joinerName":"bob",
		"members":[{"id":"c1","name":"alice"},{"id":"c2","name":"bob"}],
		"message":"bob joined the chat",
		"timestamp":"2024-05-01T10:00:00Z"}}`, string(frame))

	frame, err = EncodeEvent(event.Connected{ConnectionID: "c1", TypingTimeout: 3 * time.Second})
	req.NoError(err)
	req.JSONEq(`{"type":"connected","payload":{"connectionId":"c1","typingTimeout":3000}}`, string(frame))

	frame, err = EncodeEvent(event.MembershipSnapshot{})
	req.NoError(err)
	req.JSONEq(`{"type":"membership-snapshot","payload":{"members":[]}}`, string(frame))
}

func TestEncodeEvent_Every_Event_Has_A_Payload(t *testing.T) {
	req := require.New(t)
	events := []event.DomainEvent{
		event.Connected{},
		event.JoinConfirmation{},
		event.JoinAnnouncement{},
		event.MembershipSnapshot{},
		event.MessageDelivered{},
		event.TypingState{},
		event.PrivateMessageDelivered{},
		event.PrivateMessageSent{},
		event.ReactionUpdate{},
		event.AutoReadReceipt{},
		event.LeaveAnnouncement{},
		event.Error{},
	}
	for _, evt := range events {
		frame, err := EncodeEvent(evt)
		req.NoError(err, "event=%s", evt.Name())

		var env Envelope
		req.NoError(json.Unmarshal(frame, &env))
		req.Equal(string(evt.Name()), env.Type)
		req.NotEmpty(env.Payload)
	}
}

func TestDecodeEvent_Reads_What_EncodeEvent_Writes(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	members := []domain.Member{{ID: "c1", Name: "alice"}}
	events := []event.DomainEvent{
		event.Connected{ConnectionID: "c1", TypingTimeout: 3 * time.Second},
		event.LeaveAnnouncement{LeaverName: "bob", Members: members, Message: "bob left the chat", At: at},
		event.MessageDelivered{ID: "m1", Sender: "alice", Text: "hi", Room: "general", At: at},
		event.PrivateMessageSent{PrivateMessage: event.PrivateMessage{ID: "m2", FromName: "alice", Text: "psst", At: at}},
		event.ReactionUpdate{MessageID: "m1", Tag: "👍", ReactorName: "bob"},
	}
	for _, evt := range events {
		frame, err := EncodeEvent(evt)
		req.NoError(err)
		decoded, err := DecodeEvent(frame)
		req.NoError(err)
		req.Equal(evt, decoded)
	}
}

func TestDecodeEvent_Errors(t *testing.T) {
	req := require.New(t)

	_, err := DecodeEvent([]byte(`not json`))
	req.ErrorIs(err, errors.ErrMalformedEnvelope)

	_, err = DecodeEvent([]byte(`{"type":"party"}`))
	req.ErrorIs(err, errors.ErrUnknownEvent)

	evt, err := DecodeEvent([]byte(`{"type":"message-delivered"}`))
	req.ErrorIs(err, errors.ErrMalformedEnvelope)
	req.Nil(evt)
}
