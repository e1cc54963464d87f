//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one connection.
// Consume must not block: an event that cannot be taken is dropped.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry owns connection records, room membership and the sinks of live sessions.
type IRegistry interface {
	Attach(id domain.ConnectionID, sink EventSink)
	Detach(id domain.ConnectionID)
	Register(conn domain.Connection) (previous domain.RoomName, moved bool)
	Lookup(id domain.ConnectionID) (domain.Connection, bool)
	Remove(id domain.ConnectionID) (domain.Connection, bool)
	Members(room domain.RoomName) []domain.Member
	Sink(id domain.ConnectionID) (EventSink, bool)
	SinksForRoom(room domain.RoomName, exclude domain.ConnectionID) []EventSink
	Rooms() []domain.Room
	Count() (connections int, rooms int)
}

type IScheduler interface {
	ScheduleReceipt(message domain.Message)
}

// MessageStore is the optional persistence capability.
// The relay behaves the same whether a real store is wired or not.
type MessageStore interface {
	StoreMessage(ctx context.Context, message domain.Message) error
}

// Censor rewrites message text before it is relayed.
type Censor interface {
	Censor(original string) (string, []string)
}
