package main

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/projection"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	timeline := projection.NewTimeline("bob")
	require.NoError(t, timeline.Consume(context.Background(), event.MessageDelivered{ID: "1700000000000-abc", Sender: "alice", Text: "hi", At: time.Now()}))

	tests := []struct {
		name    string
		line    string
		want    domain.Command
		wantErr bool
	}{
		{"Plain text", "hello there", domain.SendMessageCommand{Text: "hello there"}, false},
		{"Typing", "/typing", domain.TypingCommand{Typing: true}, false},
		{"Stop typing", "/stop", domain.TypingCommand{Typing: false}, false},
		{"React by id", "/react m1 👍", domain.ReactCommand{MessageID: "m1", Tag: "👍"}, false},
		{"React by position", "/react 1 👍", domain.ReactCommand{MessageID: "1700000000000-abc", Tag: "👍"}, false},
		{"React out of timeline", "/react 2 👍", nil, true},
		{"React missing tag", "/react m1", nil, true},
		{"Private", "/pm c2 see you  soon", domain.SendPrivateCommand{Target: "c2", Text: "see you soon"}, false},
		{"Private without text", "/pm c2", nil, true},
		{"Who sends nothing", "/who", nil, false},
		{"Unknown", "/dance", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := parse(tt.line, timeline)
			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}
