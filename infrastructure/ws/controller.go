package ws

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	goerrors "errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Dispatcher is the part of the router the transport talks to.
type Dispatcher interface {
	Connect(ctx context.Context, id domain.ConnectionID, sink contract.EventSink)
	Dispatch(ctx context.Context, id domain.ConnectionID, cmd domain.Command) error
	RejectJoin(ctx context.Context, id domain.ConnectionID, cause error)
}

type connectionCounter interface {
	IncrConnectionsOpened()
}

type Options struct {
	BufferSize   int
	ReadLimit    int64
	WriteTimeout time.Duration
	PingPeriod   time.Duration
}

// Controller upgrades HTTP requests and runs one read pump and one write pump per connection.
type Controller struct {
	log      *slog.Logger
	router   Dispatcher
	counter  connectionCounter
	opts     Options
	upgrader websocket.Upgrader
}

func NewController(log *slog.Logger, router Dispatcher, counter connectionCounter, opts Options) *Controller {
	return &Controller{
		log:     log,
		router:  router,
		counter: counter,
		opts:    opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type session struct {
	id   domain.ConnectionID
	conn *websocket.Conn
	sink *Sink
	done chan struct{}
	once sync.Once
}

// Handle returns the gin handler of the WebSocket endpoint.
// Pumps outlive the HTTP request, they are bound to ctx instead.
func (ctl *Controller) Handle(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			ctl.log.Debug("WebSocket upgrade failed", "error", err)
			return
		}
		ctl.Serve(ctx, conn)
	}
}

// Serve starts the pumps of an upgraded connection and returns immediately.
func (ctl *Controller) Serve(ctx context.Context, conn *websocket.Conn) domain.ConnectionID {
	s := &session{
		id:   domain.ConnectionID(uuid.NewString()),
		conn: conn,
		sink: NewSink(ctl.opts.BufferSize),
		done: make(chan struct{}),
	}
	ctl.counter.IncrConnectionsOpened()
	ctl.router.Connect(ctx, s.id, s.sink)

	go ctl.writePump(ctx, s)
	go ctl.readPump(ctx, s)
	return s.id
}

// close runs the disconnect protocol exactly once, whoever notices first.
func (ctl *Controller) close(ctx context.Context, s *session) {
	s.once.Do(func() {
		if err := ctl.router.Dispatch(ctx, s.id, domain.DisconnectCommand{}); err != nil {
			ctl.log.Error("Disconnect failed", "connection_id", s.id, "error", err)
		}
		close(s.done)
		_ = s.conn.Close()
		ctl.log.Debug("Connection closed", "connection_id", s.id)
	})
}

func (ctl *Controller) readPump(ctx context.Context, s *session) {
	defer ctl.close(context.WithoutCancel(ctx), s)

	pongWait := ctl.opts.PingPeriod * 10 / 9
	s.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ctl.log.Debug("Read error", "connection_id", s.id, "error", err)
			}
			return
		}
		if stop := ctl.handle(ctx, s.id, data); stop {
			return
		}
	}
}

// handle reports whether the client asked to leave.
func (ctl *Controller) handle(ctx context.Context, id domain.ConnectionID, data []byte) bool {
	cmd, err := DecodeCommand(data)
	switch {
	case goerrors.Is(err, errors.ErrInvalidJoin):
		ctl.router.RejectJoin(ctx, id, err)
		return false
	case err != nil:
		ctl.log.Debug("Frame dropped", "connection_id", id, "error", err)
		return false
	case cmd.Kind() == domain.KindDisconnect:
		return true
	}

	if err := ctl.router.Dispatch(ctx, id, cmd); err != nil {
		if goerrors.Is(err, errors.ErrEventPanic) {
			ctl.log.Error("Event failed", "connection_id", id, "kind", cmd.Kind().String(), "error", err)
		} else {
			ctl.log.Debug("Event rejected", "connection_id", id, "kind", cmd.Kind().String(), "error", err)
		}
	}
	return false
}

func (ctl *Controller) writePump(ctx context.Context, s *session) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(ctl.opts.WriteTimeout))
			return
		case <-s.done:
			return
		case evt := <-s.sink.Events():
			data, err := EncodeEvent(evt)
			if err != nil {
				ctl.log.Warn("Unable to encode event", "event", evt.Name(), "error", err)
				continue
			}
			if err := s.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				ctl.log.Debug("Write error", "connection_id", s.id, "error", err)
				return
			}
		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
