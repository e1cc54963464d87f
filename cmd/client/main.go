package main

import (
	"bufio"
	"bytes"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/infrastructure/ws"
	"chat-relay/projection"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const historySize = 20

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:3001"`
	Username      string `env:"CHAT_USERNAME,required=true"`
	Room          string `env:"CHAT_ROOM,default=general"`
	LogLevel      string `env:"LOG_LEVEL,default=WARN"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run logs in, joins the configured room and relays stdin lines until Ctrl+C or /quit.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := login(config); err != nil {
		return exitRuntime, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, fmt.Sprintf("ws://%s/ws", config.ServerAddress), nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	if err := send(conn, domain.JoinCommand{DisplayName: config.Username, Room: domain.RoomName(config.Room)}); err != nil {
		return exitRuntime, err
	}
	color.Cyan.Printf(">>> Connected to %s, room %s (/help for commands, Ctrl+C to quit)\n", config.ServerAddress, config.Room)

	timeline := projection.NewTimeline(config.Username)
	readErr := make(chan error, 1)
	go func() { readErr <- receive(ctx, log, conn, timeline) }()

	lines := make(chan string)
	go scan(lines)

	for {
		select {
		case <-ctx.Done():
			_ = send(conn, domain.DisconnectCommand{})
			return exitOK, nil
		case err := <-readErr:
			if ctx.Err() != nil {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		case line, ok := <-lines:
			if !ok || line == "/quit" {
				_ = send(conn, domain.DisconnectCommand{})
				return exitOK, nil
			}
			cmd, err := parse(line, timeline)
			if err != nil {
				color.Yellow.Println(err.Error())
				continue
			}
			if cmd == nil {
				continue
			}
			if err := send(conn, cmd); err != nil {
				return exitRuntime, err
			}
		}
	}
}

func login(config Config) error {
	body, err := json.Marshal(map[string]string{"username": config.Username})
	if err != nil {
		return err
	}
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(fmt.Sprintf("http://%s/api/auth/login", config.ServerAddress), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login refused: %s", out.Error)
	}
	return nil
}

func scan(lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines <- line
		}
	}
}

// parse turns a typed line into a command. A nil command without error means nothing to send.
// Messages are referenced either by their id or by their position in the timeline.
func parse(line string, timeline *projection.Timeline) (domain.Command, error) {
	if !strings.HasPrefix(line, "/") {
		return domain.SendMessageCommand{Text: line}, nil
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "/typing":
		return domain.TypingCommand{Typing: true}, nil
	case "/stop":
		return domain.TypingCommand{Typing: false}, nil
	case "/react":
		if len(fields) != 3 {
			return nil, fmt.Errorf("usage: /react <messageId|n> <tag>")
		}
		id := domain.MessageID(fields[1])
		if n, err := strconv.Atoi(fields[1]); err == nil {
			entry, ok := timeline.At(n)
			if !ok {
				return nil, fmt.Errorf("no message #%d", n)
			}
			id = entry.Message.ID
		}
		return domain.ReactCommand{MessageID: id, Tag: fields[2]}, nil
	case "/pm":
		if len(fields) < 3 {
			return nil, fmt.Errorf("usage: /pm <connectionId> <text>")
		}
		return domain.SendPrivateCommand{Target: domain.ConnectionID(fields[1]), Text: strings.Join(fields[2:], " ")}, nil
	case "/who":
		color.Gray.Printf("%s: %s\n", timeline.Room(), names(timeline.Members()))
		return nil, nil
	case "/history":
		for i, entry := range timeline.Last(historySize) {
			fmt.Println(describe(timeline.Len()-min(timeline.Len(), historySize)+i+1, entry))
		}
		return nil, nil
	case "/help":
		color.Gray.Println("/typing /stop /react <messageId|n> <tag> /pm <connectionId> <text> /who /history /quit")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown command %s", fields[0])
	}
}

func send(conn *websocket.Conn, cmd domain.Command) error {
	frame, err := ws.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func receive(ctx context.Context, log *slog.Logger, conn *websocket.Conn, timeline *projection.Timeline) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		evt, err := ws.DecodeEvent(data)
		if err != nil {
			log.Debug("Unreadable frame", "error", err)
			continue
		}
		_ = timeline.Consume(ctx, evt)
		render(evt, timeline)
	}
}

func render(e event.DomainEvent, timeline *projection.Timeline) {
	at := time.Now().Format(time.TimeOnly)
	switch evt := e.(type) {
	case event.Connected:
		color.Gray.Printf("[%s] your connection id is %s\n", at, evt.ConnectionID)
	case event.JoinConfirmation:
		color.Green.Printf("[%s] joined %s with %s\n", at, evt.Room, names(evt.Members))
	case event.JoinAnnouncement:
		color.Green.Printf("[%s] %s\n", at, evt.Message)
	case event.LeaveAnnouncement:
		color.Yellow.Printf("[%s] %s\n", at, evt.Message)
	case event.MessageDelivered:
		if entry, ok := timeline.Get(evt.ID); ok {
			fmt.Println(describe(timeline.Len(), entry))
		}
	case event.PrivateMessageDelivered:
		color.Magenta.Printf("[%s] (private) %s: %s\n", at, evt.FromName, evt.Text)
	case event.PrivateMessageSent:
		color.Magenta.Printf("[%s] (private, sent) %s\n", at, evt.Text)
	case event.TypingState:
		if evt.IsTyping && evt.Username != timeline.Owner {
			color.Gray.Printf("%s is typing...\n", evt.Username)
		}
	case event.ReactionUpdate:
		color.Cyan.Printf("%s reacted %s to #%s\n", evt.ReactorName, evt.Tag, evt.MessageID)
	case event.AutoReadReceipt:
		color.Gray.Printf("seen by %s: #%s\n", evt.ReaderName, evt.MessageID)
	case event.Error:
		color.Red.Printf("[%s] error: %s\n", at, evt.Message)
	}
}

// describe renders a message line prefixed with its position in the timeline.
func describe(n int, entry projection.Entry) string {
	line := fmt.Sprintf("%s %s %s: %s",
		color.Gray.Render(fmt.Sprintf("%3d", n)),
		entry.Message.At.Local().Format(time.TimeOnly),
		color.Bold.Render(entry.Message.Sender),
		entry.Message.Text,
	)
	for tag, reactors := range entry.Reactions {
		line += color.Cyan.Render(fmt.Sprintf(" %s%d", tag, len(reactors)))
	}
	return line
}

func names(members []domain.Member) string {
	return strings.Join(lo.Map(members, func(m domain.Member, _ int) string { return m.Name }), ", ")
}
