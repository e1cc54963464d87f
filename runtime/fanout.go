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

// Scope selects the connections an outbound event is delivered to.
type Scope int

const (
	ScopeSelf Scope = iota
	ScopeRoomOthers
	ScopeRoomAll
	ScopeDirect
)

func (s Scope) String() string {
	switch s {
	case ScopeSelf:
		return "self"
	case ScopeRoomOthers:
		return "room-others"
	case ScopeRoomAll:
		return "room-all"
	case ScopeDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// Delivery describes where an event goes.
// Origin is the sending connection, Room is used by the room scopes and Target by ScopeDirect.
type Delivery struct {
	Scope  Scope
	Origin domain.ConnectionID
	Room   domain.RoomName
	Target domain.ConnectionID
}

// Fanout delivers outbound events to the sinks of a computed scope.
//
// The target set is snapshotted from the registry before iterating, so a join or leave
// happening meanwhile is never half visible. Broadcasts are serialized: every member of a room
// sees the room's events in the order they were processed.
// Delivery is best-effort: a full or missing sink is skipped, never retried.
type Fanout struct {
	mu          sync.Mutex
	log         *slog.Logger
	registry    contract.IRegistry
	sinkTimeout time.Duration
}

func NewFanout(log *slog.Logger, registry contract.IRegistry, sinkTimeout time.Duration) *Fanout {
	return &Fanout{log: log, registry: registry, sinkTimeout: sinkTimeout}
}

// Broadcast returns the number of sinks the event was handed to.
func (f *Fanout) Broadcast(ctx context.Context, d Delivery, evt event.DomainEvent) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	sinks := f.targets(d)
	delivered := 0
	for _, sink := range sinks {
		if f.consume(ctx, sink, evt) {
			delivered++
		}
	}
	return delivered
}

func (f *Fanout) ToSelf(ctx context.Context, origin domain.ConnectionID, evt event.DomainEvent) int {
	return f.Broadcast(ctx, Delivery{Scope: ScopeSelf, Origin: origin}, evt)
}

func (f *Fanout) ToRoomOthers(ctx context.Context, origin domain.ConnectionID, room domain.RoomName, evt event.DomainEvent) int {
	return f.Broadcast(ctx, Delivery{Scope: ScopeRoomOthers, Origin: origin, Room: room}, evt)
}

func (f *Fanout) ToRoomAll(ctx context.Context, room domain.RoomName, evt event.DomainEvent) int {
	return f.Broadcast(ctx, Delivery{Scope: ScopeRoomAll, Room: room}, evt)
}

func (f *Fanout) ToPeer(ctx context.Context, target domain.ConnectionID, evt event.DomainEvent) int {
	return f.Broadcast(ctx, Delivery{Scope: ScopeDirect, Target: target}, evt)
}

func (f *Fanout) targets(d Delivery) []contract.EventSink {
	switch d.Scope {
	case ScopeSelf:
		return f.single(d.Origin)
	case ScopeDirect:
		return f.single(d.Target)
	case ScopeRoomOthers:
		return f.registry.SinksForRoom(d.Room, d.Origin)
	case ScopeRoomAll:
		return f.registry.SinksForRoom(d.Room, "")
	default:
		f.log.Warn("Unknown delivery scope", "scope", d.Scope)
		return nil
	}
}

func (f *Fanout) single(id domain.ConnectionID) []contract.EventSink {
	sink, ok := f.registry.Sink(id)
	if !ok {
		return nil
	}
	return []contract.EventSink{sink}
}

// consume gives each sink its own deadline so a misbehaving one cannot stall the broadcast.
// A non-positive timeout means no deadline.
func (f *Fanout) consume(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) bool {
	sinkCtx := ctx
	if f.sinkTimeout > 0 {
		var cancel context.CancelFunc
		sinkCtx, cancel = context.WithTimeout(ctx, f.sinkTimeout)
		defer cancel()
	}
	if err := sink.Consume(sinkCtx, evt); err != nil {
		f.log.Debug("Event dropped", "event", evt.Name(), "error", err)
		return false
	}
	return true
}
