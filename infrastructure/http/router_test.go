package http

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"
	"encoding/json"
	"log/slog"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixedMonitor struct{ stats observability.Stats }

func (m fixedMonitor) Snapshot() observability.Stats { return m.stats }

type api struct {
	engine     *gin.Engine
	registry   *runtime.Registry
	repository *mocks.MockIMessageRepository
}

func newAPI(t *testing.T) api {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewRegistry()
	repository := mocks.NewMockIMessageRepository(ctrl)

	engine := SetupRouter(gin.TestMode, Handlers{
		Log:            log,
		Auth:           services.NewAuthService([]byte("secret"), time.Hour),
		Chat:           services.NewChatService(registry, repository),
		Monitor:        fixedMonitor{stats: observability.Stats{Connections: 2, Rooms: 1, UptimeSeconds: 42}},
		WebSocket:      func(c *gin.Context) { c.Status(nethttp.StatusUpgradeRequired) },
		ArchiveEnabled: true,
	})
	return api{engine: engine, registry: registry, repository: repository}
}

func (a api) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	a.engine.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestBanner(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)

	w := a.do(nethttp.MethodGet, "/", "")

	req.Equal(nethttp.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	req.Equal("online", body["status"])
	req.Equal(version, body["version"])
	req.NotEmpty(body["features"])
}

func TestHealth(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)

	w := a.do(nethttp.MethodGet, "/api/health", "")

	req.Equal(nethttp.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	req.Equal("OK", body["status"])
	req.Equal(true, body["archiveEnabled"])
	req.EqualValues(2, body["connections"])
	req.EqualValues(42, body["uptime_seconds"])
}

func TestLogin(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"Valid username", `{"username":"  alice "}`, nethttp.StatusOK, ""},
		{"Too short", `{"username":"al"}`, nethttp.StatusBadRequest, errors.ErrInvalidUsername.Error()},
		{"Missing username", `{}`, nethttp.StatusBadRequest, errors.ErrInvalidUsername.Error()},
		{"Not json", `username=alice`, nethttp.StatusBadRequest, errors.ErrInvalidUsername.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			w := a.do(nethttp.MethodPost, "/api/auth/login", tt.body)
			req.Equal(tt.wantStatus, w.Code)
			if tt.wantError != "" {
				req.Equal(tt.wantError, decode[errorResponse](t, w).Error)
				return
			}
			body := decode[loginResponse](t, w)
			req.Equal("alice", body.Username)
			req.Equal("Authentication successful", body.Message)
			req.Len(strings.Split(body.Token, "."), 3)
		})
	}
}

func TestRooms_Reflect_Live_Presence(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)

	// Given two connections in general
	a.registry.Register(domain.Connection{ID: "c1", Name: "alice", Room: "general"})
	a.registry.Register(domain.Connection{ID: "c2", Name: "bob", Room: "general"})

	// When listing rooms
	w := a.do(nethttp.MethodGet, "/api/rooms", "")

	// Then the room is listed with its members in join order
	req.Equal(nethttp.StatusOK, w.Code)
	rooms := decode[[]roomResponse](t, w)
	req.Len(rooms, 1)
	req.Equal("general", rooms[0].Name)
	req.Equal(2, rooms[0].Count)
	req.Equal([]string{"alice", "bob"}, lo.Map(rooms[0].Members, func(m memberResponse, _ int) string { return m.Name }))
}

func TestDefaultRooms(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)

	w := a.do(nethttp.MethodGet, "/api/rooms/defaults", "")

	req.Equal(nethttp.StatusOK, w.Code)
	req.Equal([]string{"general", "tech", "gaming", "random", "music"}, decode[[]string](t, w))
}

func TestMessages(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	page := []repositories.DiskMessage{{ID: "m1", Room: "general", Author: "alice", Content: "hello", Lang: "en", At: at}}

	// Given a page with a next cursor
	a.repository.EXPECT().GetMessages(domain.RoomName("general"), lo.ToPtr("abc")).
		Return(page, lo.ToPtr("next"), nil).Times(1)

	// When requesting the history from a cursor
	w := a.do(nethttp.MethodGet, "/api/rooms/general/messages?cursor=abc", "")

	// Then the page and the next cursor are returned
	req.Equal(nethttp.StatusOK, w.Code)
	body := decode[historyResponse](t, w)
	req.Equal("next", *body.Cursor)
	req.Len(body.Messages, 1)
	req.Equal("alice", body.Messages[0].Sender)
	req.Equal("hello", body.Messages[0].Text)
	req.True(at.Equal(body.Messages[0].Timestamp))
}

func TestMessages_Invalid_Cursor(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)

	a.repository.EXPECT().GetMessages(domain.RoomName("general"), lo.ToPtr("bad")).
		Return(nil, nil, errors.ErrInvalidCursor).Times(1)

	w := a.do(nethttp.MethodGet, "/api/rooms/general/messages?cursor=bad", "")

	req.Equal(nethttp.StatusBadRequest, w.Code)
	req.Equal(errors.ErrInvalidCursor.Error(), decode[errorResponse](t, w).Error)
}

func TestSearch(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	page := []repositories.DiskMessage{{ID: "m1", Room: "tech", Author: "bob", Content: "golang rocks"}}

	a.repository.EXPECT().Search(gomock.Any(), domain.RoomName("tech"), "golang").Return(page, nil).Times(1)

	w := a.do(nethttp.MethodGet, "/api/rooms/tech/search?q=golang", "")

	req.Equal(nethttp.StatusOK, w.Code)
	body := decode[historyResponse](t, w)
	req.Nil(body.Cursor)
	req.Len(body.Messages, 1)
	req.Equal("golang rocks", body.Messages[0].Text)
}

func TestSearch_Failure_Is_Hidden(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)

	a.repository.EXPECT().Search(gomock.Any(), domain.RoomName("tech"), "x").
		Return(nil, json.Unmarshal([]byte("{"), &struct{}{})).Times(1)

	w := a.do(nethttp.MethodGet, "/api/rooms/tech/search?q=x", "")

	req.Equal(nethttp.StatusInternalServerError, w.Code)
	req.Equal("Internal server error", decode[errorResponse](t, w).Error)
}

func TestUnknownRoute(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)

	w := a.do(nethttp.MethodGet, "/nope", "")

	req.Equal(nethttp.StatusNotFound, w.Code)
	req.Equal("Route not found", decode[errorResponse](t, w).Error)
}

func TestWebSocket_Route_Is_Mounted(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)

	w := a.do(nethttp.MethodGet, "/ws", "")

	req.Equal(nethttp.StatusUpgradeRequired, w.Code)
}
