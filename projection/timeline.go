// Package projection builds local timelines from observed events.
// Handles ordering, deduplication, and projections.
// Does not emit events or interact with UI directly.
package projection

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"sync"

	"github.com/samber/lo"
)

// Entry is one message of the timeline with what happened to it afterwards.
type Entry struct {
	Message   event.MessageDelivered
	Reactions map[string][]string // tag -> reactor names, the relay does not deduplicate
	ReadBy    []string
}

// Timeline holds the local view of the room a connection is in.
// It is fed by the receiving goroutine and read by the input loop.
type Timeline struct {
	mu      sync.RWMutex
	Owner   string
	room    domain.RoomName
	members []domain.Member
	entries []*Entry
	byID    map[domain.MessageID]*Entry
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{
		Owner: owner,
		byID:  make(map[domain.MessageID]*Entry),
	}
}

// Consume applies an event to the view. It satisfies contract.EventSink and never fails.
func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch evt := e.(type) {
	case event.JoinConfirmation:
		if evt.Room != t.room {
			t.entries = nil
			t.byID = make(map[domain.MessageID]*Entry)
		}
		t.room = evt.Room
		t.members = evt.Members
	case event.JoinAnnouncement:
		t.members = evt.Members
	case event.LeaveAnnouncement:
		t.members = evt.Members
	case event.MembershipSnapshot:
		t.members = evt.Members
	case event.MessageDelivered:
		if _, seen := t.byID[evt.ID]; seen {
			return nil
		}
		entry := &Entry{Message: evt, Reactions: make(map[string][]string)}
		t.entries = append(t.entries, entry)
		t.byID[evt.ID] = entry
	case event.ReactionUpdate:
		if entry, ok := t.byID[evt.MessageID]; ok {
			entry.Reactions[evt.Tag] = append(entry.Reactions[evt.Tag], evt.ReactorName)
		}
	case event.AutoReadReceipt:
		if entry, ok := t.byID[evt.MessageID]; ok {
			entry.ReadBy = lo.Uniq(append(entry.ReadBy, evt.ReaderName))
		}
	}
	return nil
}

func (t *Timeline) Room() domain.RoomName {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.room
}

func (t *Timeline) Members() []domain.Member {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.Member(nil), t.members...)
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// At returns the n-th message, counting from 1.
func (t *Timeline) At(n int) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n < 1 || n > len(t.entries) {
		return Entry{}, false
	}
	return t.entries[n-1].copy(), true
}

func (t *Timeline) Get(id domain.MessageID) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.byID[id]
	if !ok {
		return Entry{}, false
	}
	return entry.copy(), true
}

// Last returns up to n of the newest entries, oldest first.
func (t *Timeline) Last(n int) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	from := max(len(t.entries)-n, 0)
	return lo.Map(t.entries[from:], func(e *Entry, _ int) Entry { return e.copy() })
}

func (e *Entry) copy() Entry {
	reactions := make(map[string][]string, len(e.Reactions))
	for tag, names := range e.Reactions {
		reactions[tag] = append([]string(nil), names...)
	}
	return Entry{Message: e.Message, Reactions: reactions, ReadBy: append([]string(nil), e.ReadBy...)}
}
