package e2e

import (
	"bytes"
	"chat-relay/domain"
	"chat-relay/infrastructure/ws"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR is not set, no relay to talk to")
	}
}

// Step prints a colorized header then runs fn as a subtest.
func (s *BaseRelaySuite) Step(name string, fn func()) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
	s.Run(name, fn)
}

// Login asks the relay for an identity token.
func (s *BaseRelaySuite) Login(username string) string {
	body, err := json.Marshal(map[string]string{"username": username})
	s.Require().NoError(err)

	resp, err := http.Post(fmt.Sprintf("http://%s/api/auth/login", s.Config.RelayAddr), "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return out.Token
}

// Peer is one WebSocket session opened against the relay.
type Peer struct {
	s    *BaseRelaySuite
	name string
	conn *websocket.Conn
	ID   string
}

// Dial opens a session and reads its connected greeting.
func (s *BaseRelaySuite) Dial(name string) *Peer {
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", s.Config.RelayAddr), nil)
	s.Require().NoError(err, "Failed to connect to relay at "+s.Config.RelayAddr)
	s.T().Cleanup(func() { _ = conn.Close() })

	p := &Peer{s: s, name: name, conn: conn}
	var connected ws.ConnectedPayload
	p.Expect("connected", &connected)
	p.ID = connected.ConnectionID
	return p
}

func (p *Peer) Send(cmd domain.Command) {
	frame, err := ws.EncodeCommand(cmd)
	p.s.Require().NoError(err)
	p.s.Require().NoError(p.conn.WriteMessage(websocket.TextMessage, frame))
}

// Expect reads frames until one of the given type arrives, other frames are skipped.
func (p *Peer) Expect(eventType string, payload any) {
	deadline := time.Now().Add(p.s.Config.Timeout)
	for {
		p.s.Require().NoError(p.conn.SetReadDeadline(deadline))
		_, data, err := p.conn.ReadMessage()
		p.s.Require().NoError(err, "%s was waiting for %s", p.name, eventType)

		var env ws.Envelope
		p.s.Require().NoError(json.Unmarshal(data, &env))
		if p.s.Config.DebugJSON {
			p.s.T().Logf("%s <- %s", p.name, data)
		}
		if env.Type != eventType {
			continue
		}
		if payload != nil {
			p.s.Require().NoError(json.Unmarshal(env.Payload, payload))
		}
		return
	}
}
