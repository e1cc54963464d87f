package domain

// Kind enumerates the inbound client events. The set is closed:
// adding a kind means adding a handler to the router dispatch table.
type Kind int

const (
	KindJoin Kind = iota
	KindSendMessage
	KindTypingStart
	KindTypingStop
	KindSendPrivate
	KindReact
	KindDisconnect
)

var kindNames = [...]string{
	KindJoin:        "join",
	KindSendMessage: "send-message",
	KindTypingStart: "typing-start",
	KindTypingStop:  "typing-stop",
	KindSendPrivate: "send-private",
	KindReact:       "react",
	KindDisconnect:  "disconnect",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds returns every inbound kind, in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kindNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

// ParseKind resolves a wire name into a Kind.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

type Command interface {
	Kind() Kind
}

type JoinCommand struct {
	DisplayName string
	Room        RoomName
}

func (JoinCommand) Kind() Kind { return KindJoin }

type SendMessageCommand struct {
	Text string
}

func (SendMessageCommand) Kind() Kind { return KindSendMessage }

// TypingCommand covers both typing-start and typing-stop.
type TypingCommand struct {
	Typing bool
}

func (c TypingCommand) Kind() Kind {
	if c.Typing {
		return KindTypingStart
	}
	return KindTypingStop
}

type SendPrivateCommand struct {
	Target ConnectionID
	Text   string
}

func (SendPrivateCommand) Kind() Kind { return KindSendPrivate }

type ReactCommand struct {
	MessageID MessageID
	Tag       string
}

func (ReactCommand) Kind() Kind { return KindReact }

type DisconnectCommand struct{}

func (DisconnectCommand) Kind() Kind { return KindDisconnect }
