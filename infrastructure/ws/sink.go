package ws

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
)

// Sink buffers the outbound events of one connection until its write pump sends them.
// The channel is never closed: a broadcast holding a stale sink can still Consume safely,
// the event is then simply never written.
type Sink struct {
	events chan event.DomainEvent
}

func NewSink(bufferSize int) *Sink {
	return &Sink{events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by fanout. It never blocks: a full buffer drops the event.
func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.events <- e:
		return nil
	default:
		return errors.ErrSinkFull
	}
}

func (s *Sink) Events() <-chan event.DomainEvent {
	return s.events
}
