package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
)

type IChatService interface {
	Rooms() []domain.Room
	DefaultRooms() []domain.RoomName
	GetMessages(room domain.RoomName, cursor *string) ([]repositories.DiskMessage, *string, error)
	Search(ctx context.Context, room domain.RoomName, query string) ([]repositories.DiskMessage, error)
}

// ChatService is the read side exposed over HTTP: live presence from the registry,
// history from the archive.
type ChatService struct {
	registry   contract.IRegistry
	repository repositories.IMessageRepository
}

func NewChatService(registry contract.IRegistry, repository repositories.IMessageRepository) *ChatService {
	return &ChatService{registry: registry, repository: repository}
}

func (s *ChatService) Rooms() []domain.Room {
	return s.registry.Rooms()
}

// DefaultRooms are suggestions for room pickers, they don't exist until somebody joins.
func (s *ChatService) DefaultRooms() []domain.RoomName {
	return append([]domain.RoomName(nil), domain.DefaultRooms...)
}

func (s *ChatService) GetMessages(room domain.RoomName, cursor *string) ([]repositories.DiskMessage, *string, error) {
	return s.repository.GetMessages(room, cursor)
}

func (s *ChatService) Search(ctx context.Context, room domain.RoomName, query string) ([]repositories.DiskMessage, error) {
	return s.repository.Search(ctx, room, query)
}
