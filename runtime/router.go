package runtime

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const joinFailedMessage = "Failed to join room"

type handler func(ctx context.Context, id domain.ConnectionID, cmd domain.Command) error

// Router dispatches inbound commands to their handler.
// Every kind has exactly one entry in the dispatch table; a fault while handling
// one command is recovered and reported, the router keeps serving.
type Router struct {
	// presence serializes membership changes with the member lists they announce,
	// so the last snapshot a member receives always matches the room.
	presence      sync.Mutex
	log           *slog.Logger
	registry      contract.IRegistry
	fanout        *Fanout
	scheduler     contract.IScheduler
	store         contract.MessageStore
	censor        contract.Censor
	typingTimeout time.Duration
	now           func() time.Time
	handlers      map[domain.Kind]handler
}

func NewRouter(
	log *slog.Logger,
	registry contract.IRegistry,
	fanout *Fanout,
	scheduler contract.IScheduler,
	typingTimeout time.Duration,
) *Router {
	r := &Router{
		log:           log,
		registry:      registry,
		fanout:        fanout,
		scheduler:     scheduler,
		store:         NoopStore{},
		censor:        verbatim{},
		typingTimeout: typingTimeout,
		now:           time.Now,
	}
	r.handlers = map[domain.Kind]handler{
		domain.KindJoin:        r.join,
		domain.KindSendMessage: r.sendMessage,
		domain.KindTypingStart: r.typing,
		domain.KindTypingStop:  r.typing,
		domain.KindSendPrivate: r.sendPrivate,
		domain.KindReact:       r.react,
		domain.KindDisconnect:  r.disconnect,
	}
	return r
}

// WithStore wires an optional message store. Nil keeps the no-op default.
func (r *Router) WithStore(store contract.MessageStore) *Router {
	if store != nil {
		r.store = store
	}
	return r
}

// WithCensor wires an optional censor. Nil keeps the text verbatim.
func (r *Router) WithCensor(censor contract.Censor) *Router {
	if censor != nil {
		r.censor = censor
	}
	return r
}

// Connect binds the sink of a new session and greets it with its connection id.
func (r *Router) Connect(ctx context.Context, id domain.ConnectionID, sink contract.EventSink) {
	r.registry.Attach(id, sink)
	r.fanout.ToSelf(ctx, id, event.Connected{ConnectionID: id, TypingTimeout: r.typingTimeout})
	r.log.Debug("Connection opened", "connection_id", id)
}

// Dispatch runs the handler of the command kind inside its own failure boundary.
func (r *Router) Dispatch(ctx context.Context, id domain.ConnectionID, cmd domain.Command) (err error) {
	if cmd == nil {
		return errors.ErrUnknownEvent
	}
	h, ok := r.handlers[cmd.Kind()]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownEvent, cmd.Kind())
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Event handler panicked", "kind", cmd.Kind().String(), "connection_id", id, "panic", rec)
			err = fmt.Errorf("%w: %s: %v", errors.ErrEventPanic, cmd.Kind(), rec)
		}
	}()
	return h(ctx, id, cmd)
}

// RejectJoin reports a join that could not even be decoded.
// It is the only failure ever surfaced to a client.
func (r *Router) RejectJoin(ctx context.Context, id domain.ConnectionID, cause error) {
	r.log.Debug("Join rejected", "connection_id", id, "error", cause)
	r.fanout.ToSelf(ctx, id, event.Error{Message: joinFailedMessage})
}

func (r *Router) join(ctx context.Context, id domain.ConnectionID, cmd domain.Command) error {
	c, ok := cmd.(domain.JoinCommand)
	if !ok {
		return fmt.Errorf("%w: %T", errors.ErrUnknownEvent, cmd)
	}
	if err := auth.ValidateJoin(auth.JoinRequest{DisplayName: c.DisplayName, Room: string(c.Room)}); err != nil {
		r.RejectJoin(ctx, id, err)
		return err
	}

	r.presence.Lock()
	defer r.presence.Unlock()
	old, known := r.registry.Lookup(id)
	previous, moved := r.registry.Register(domain.Connection{
		ID:       id,
		Name:     c.DisplayName,
		Room:     c.Room,
		JoinedAt: r.now(),
	})
	if known && moved {
		r.announceLeave(ctx, id, old.Name, previous)
	}

	members := r.registry.Members(c.Room)
	r.fanout.ToSelf(ctx, id, event.JoinConfirmation{Room: c.Room, Members: members})
	r.fanout.ToRoomOthers(ctx, id, c.Room, event.JoinAnnouncement{
		JoinerName: c.DisplayName,
		Members:    members,
		Message:    fmt.Sprintf("%s joined the chat", c.DisplayName),
		At:         r.now(),
	})
	r.fanout.ToRoomAll(ctx, c.Room, event.MembershipSnapshot{Members: members})

	r.log.Debug("Connection joined", "connection_id", id, "room", c.Room, "members", len(members))
	return nil
}

func (r *Router) sendMessage(ctx context.Context, id domain.ConnectionID, cmd domain.Command) error {
	c, ok := cmd.(domain.SendMessageCommand)
	if !ok {
		return fmt.Errorf("%w: %T", errors.ErrUnknownEvent, cmd)
	}
	conn, found := r.sender(id)
	if !found {
		return nil
	}

	at := r.now()
	message := domain.Message{
		ID:        domain.NewMessageID(at),
		Room:      conn.Room,
		SenderID:  id,
		Sender:    conn.Name,
		Content:   r.clean(id, c.Text),
		CreatedAt: at,
	}
	r.fanout.ToRoomAll(ctx, conn.Room, event.MessageDelivered{
		ID:     message.ID,
		Sender: message.Sender,
		Text:   message.Content,
		Room:   message.Room,
		At:     message.CreatedAt,
	})
	r.scheduler.ScheduleReceipt(message)

	if err := r.store.StoreMessage(ctx, message); err != nil {
		r.log.Debug("Message not archived", "message_id", message.ID, "error", err)
	}
	return nil
}

func (r *Router) typing(ctx context.Context, id domain.ConnectionID, cmd domain.Command) error {
	c, ok := cmd.(domain.TypingCommand)
	if !ok {
		return fmt.Errorf("%w: %T", errors.ErrUnknownEvent, cmd)
	}
	conn, found := r.sender(id)
	if !found {
		return nil
	}
	r.fanout.ToRoomOthers(ctx, id, conn.Room, event.TypingState{Username: conn.Name, IsTyping: c.Typing})
	return nil
}

// sendPrivate never checks the target: a dead id is a silent no-op,
// while the sender always gets its confirmation.
func (r *Router) sendPrivate(ctx context.Context, id domain.ConnectionID, cmd domain.Command) error {
	c, ok := cmd.(domain.SendPrivateCommand)
	if !ok {
		return fmt.Errorf("%w: %T", errors.ErrUnknownEvent, cmd)
	}
	conn, found := r.sender(id)
	if !found {
		return nil
	}

	at := r.now()
	pm := event.PrivateMessage{
		ID:       domain.NewMessageID(at),
		FromName: conn.Name,
		Text:     r.clean(id, c.Text),
		At:       at,
	}
	if c.Target != id {
		r.fanout.ToPeer(ctx, c.Target, event.PrivateMessageDelivered{PrivateMessage: pm})
	}
	r.fanout.ToSelf(ctx, id, event.PrivateMessageSent{PrivateMessage: pm})
	return nil
}

func (r *Router) react(ctx context.Context, id domain.ConnectionID, cmd domain.Command) error {
	c, ok := cmd.(domain.ReactCommand)
	if !ok {
		return fmt.Errorf("%w: %T", errors.ErrUnknownEvent, cmd)
	}
	conn, found := r.sender(id)
	if !found {
		return nil
	}
	r.fanout.ToRoomAll(ctx, conn.Room, event.ReactionUpdate{
		MessageID:   c.MessageID,
		Tag:         c.Tag,
		ReactorName: conn.Name,
	})
	return nil
}

// disconnect always releases the session sink.
// Membership cleanup and the leave announcement only happen for a joined connection.
func (r *Router) disconnect(ctx context.Context, id domain.ConnectionID, _ domain.Command) error {
	r.registry.Detach(id)
	r.presence.Lock()
	defer r.presence.Unlock()
	conn, ok := r.registry.Remove(id)
	if !ok {
		r.log.Debug("Connection closed before joining", "connection_id", id)
		return nil
	}
	r.announceLeave(ctx, id, conn.Name, conn.Room)
	r.log.Debug("Connection left", "connection_id", id, "room", conn.Room)
	return nil
}

// announceLeave must run once the leaver is out of the room.
func (r *Router) announceLeave(ctx context.Context, id domain.ConnectionID, name string, room domain.RoomName) {
	members := r.registry.Members(room)
	if len(members) == 0 {
		return
	}
	r.fanout.ToRoomOthers(ctx, id, room, event.LeaveAnnouncement{
		LeaverName: name,
		Members:    members,
		Message:    fmt.Sprintf("%s left the chat", name),
		At:         r.now(),
	})
	r.fanout.ToRoomAll(ctx, room, event.MembershipSnapshot{Members: members})
}

func (r *Router) sender(id domain.ConnectionID) (domain.Connection, bool) {
	conn, ok := r.registry.Lookup(id)
	if !ok {
		r.log.Debug("Event from unregistered connection dropped", "connection_id", id)
	}
	return conn, ok
}

func (r *Router) clean(id domain.ConnectionID, text string) string {
	censored, words := r.censor.Censor(text)
	if len(words) > 0 {
		r.log.Debug("Message censored", "connection_id", id, "words", len(words))
	}
	return censored
}

// NoopStore is the store used when no archive is wired.
type NoopStore struct{}

func (NoopStore) StoreMessage(context.Context, domain.Message) error { return nil }

type verbatim struct{}

func (verbatim) Censor(original string) (string, []string) { return original, nil }
