package http

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/services"
	"log/slog"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const version = "2.0.0"

var features = []string{
	"Real-time messaging",
	"Identity tokens",
	"Typing indicators",
	"Private messages",
	"Message reactions",
	"Read receipts",
}

type healthReporter interface {
	Snapshot() observability.Stats
}

// Handlers gathers what the HTTP API needs.
type Handlers struct {
	Log            *slog.Logger
	Auth           services.IAuthService
	Chat           services.IChatService
	Monitor        healthReporter
	WebSocket      gin.HandlerFunc
	ArchiveEnabled bool
}

type loginRequest struct {
	Username string `json:"username"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type memberResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type roomResponse struct {
	Name    string           `json:"name"`
	Count   int              `json:"count"`
	Members []memberResponse `json:"members"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Lang      string    `json:"lang"`
	Timestamp time.Time `json:"timestamp"`
}

type historyResponse struct {
	Messages []messageResponse `json:"messages"`
	Cursor   *string           `json:"cursor"`
}

type healthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	ArchiveEnabled bool      `json:"archiveEnabled"`
	observability.Stats
}

func SetupRouter(mode string, h Handlers) *gin.Engine {
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if mode == gin.DebugMode {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/", h.banner)
	r.GET("/ws", h.WebSocket)

	api := r.Group("/api")
	api.POST("/auth/login", h.login)
	api.GET("/health", h.health)
	api.GET("/rooms", h.rooms)
	api.GET("/rooms/defaults", h.defaultRooms)
	api.GET("/rooms/:room/messages", h.messages)
	api.GET("/rooms/:room/search", h.search)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(nethttp.StatusNotFound, errorResponse{Error: "Route not found"})
	})

	h.Log.Debug("Router setup", "mode", mode, "archive", h.ArchiveEnabled)
	return r
}

func (h Handlers) banner(c *gin.Context) {
	c.JSON(nethttp.StatusOK, gin.H{
		"message":   "Chat relay is running!",
		"version":   version,
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"features":  features,
	})
}

func (h Handlers) login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(nethttp.StatusBadRequest, errorResponse{Error: errors.ErrInvalidUsername.Error()})
		return
	}
	token, err := h.Auth.Login(body.Username)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, loginResponse{
		Token:    token.String(),
		Username: strings.TrimSpace(body.Username),
		Message:  "Authentication successful",
	})
}

func (h Handlers) health(c *gin.Context) {
	c.JSON(nethttp.StatusOK, healthResponse{
		Status:         "OK",
		Timestamp:      time.Now().UTC(),
		ArchiveEnabled: h.ArchiveEnabled,
		Stats:          h.Monitor.Snapshot(),
	})
}

func (h Handlers) rooms(c *gin.Context) {
	c.JSON(nethttp.StatusOK, lo.Map(h.Chat.Rooms(), func(room domain.Room, _ int) roomResponse {
		return roomResponse{
			Name:  string(room.Name),
			Count: len(room.Members),
			Members: lo.Map(room.Members, func(m domain.Member, _ int) memberResponse {
				return memberResponse{ID: string(m.ID), Name: m.Name}
			}),
		}
	}))
}

func (h Handlers) defaultRooms(c *gin.Context) {
	c.JSON(nethttp.StatusOK, h.Chat.DefaultRooms())
}

func (h Handlers) messages(c *gin.Context) {
	var cursor *string
	if value, ok := c.GetQuery("cursor"); ok && value != "" {
		cursor = &value
	}
	messages, next, err := h.Chat.GetMessages(domain.RoomName(c.Param("room")), cursor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, historyResponse{Messages: toMessages(messages), Cursor: next})
}

func (h Handlers) search(c *gin.Context) {
	messages, err := h.Chat.Search(c.Request.Context(), domain.RoomName(c.Param("room")), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, historyResponse{Messages: toMessages(messages)})
}

func (h Handlers) fail(c *gin.Context, err error) {
	status := errors.MapToHTTPStatus(err)
	if status >= nethttp.StatusInternalServerError {
		h.Log.Error("Request failed", "path", c.FullPath(), "error", err)
	} else {
		h.Log.Debug("Request rejected", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, errorResponse{Error: errors.PublicMessage(err)})
}

func toMessages(messages []repositories.DiskMessage) []messageResponse {
	return lo.Map(messages, func(m repositories.DiskMessage, _ int) messageResponse {
		return messageResponse{
			ID:        string(m.ID),
			Room:      string(m.Room),
			Sender:    m.Author,
			Text:      m.Content,
			Lang:      m.Lang,
			Timestamp: m.At,
		}
	})
}
