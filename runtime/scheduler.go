package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultReceiptDelay = 2 * time.Second

// ReceiptScheduler simulates read receipts: some time after a message is sent,
// every other member of the room is told it has read it.
//
// Each schedule is a one-shot timer. Nothing is captured but the message itself:
// the room membership is read again when the timer fires, so members who left meanwhile
// get nothing and members who joined meanwhile get a receipt. Timers are never cancelled.
type ReceiptScheduler struct {
	log      *slog.Logger
	registry contract.IRegistry
	fanout   *Fanout
	delay    time.Duration
	pending  sync.WaitGroup
}

func NewReceiptScheduler(log *slog.Logger, registry contract.IRegistry, fanout *Fanout, delay time.Duration) *ReceiptScheduler {
	return &ReceiptScheduler{log: log, registry: registry, fanout: fanout, delay: delay}
}

func (s *ReceiptScheduler) ScheduleReceipt(message domain.Message) {
	s.pending.Add(1)
	time.AfterFunc(s.delay, func() {
		defer s.pending.Done()
		s.fire(message)
	})
}

// Wait blocks until every scheduled receipt has fired.
func (s *ReceiptScheduler) Wait() {
	s.pending.Wait()
}

// fire addresses each receipt to the reader's own connection, carrying the reader's name.
func (s *ReceiptScheduler) fire(message domain.Message) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Read receipt panicked", "message_id", message.ID, "panic", r)
		}
	}()

	for _, member := range s.registry.Members(message.Room) {
		if member.ID == message.SenderID {
			continue
		}
		s.fanout.ToPeer(context.Background(), member.ID, event.AutoReadReceipt{
			MessageID:  message.ID,
			ReaderName: member.Name,
		})
	}
}
