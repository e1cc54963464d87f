package services

import (
	"chat-relay/domain"
	"chat-relay/mocks"
	"chat-relay/repositories"
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestChatService_Rooms_Come_From_Registry(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	rooms := []domain.Room{{Name: "general", Members: []domain.Member{{ID: "a", Name: "alice"}}}}

	mockRegistry.EXPECT().Rooms().Return(rooms).Times(1)

	svc := NewChatService(mockRegistry, repositories.NoopMessageRepository{})
	req.Equal(rooms, svc.Rooms())
}

func TestChatService_DefaultRooms_Are_A_Copy(t *testing.T) {
	req := require.New(t)
	svc := NewChatService(nil, repositories.NoopMessageRepository{})

	defaults := svc.DefaultRooms()
	defaults[0] = "changed"

	req.Equal(domain.RoomName("general"), svc.DefaultRooms()[0])
	req.Len(svc.DefaultRooms(), 5)
}

func TestChatService_History_Delegates_To_Repository(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepository := mocks.NewMockIMessageRepository(ctrl)
	page := []repositories.DiskMessage{{ID: "m1", Room: "general", Author: "alice", Content: "hi"}}

	mockRepository.EXPECT().GetMessages(domain.RoomName("general"), gomock.Nil()).
		Return(page, lo.ToPtr("cursor"), nil).Times(1)
	mockRepository.EXPECT().Search(gomock.Any(), domain.RoomName("general"), "hi").
		Return(page, nil).Times(1)

	svc := NewChatService(nil, mockRepository)

	messages, cursor, err := svc.GetMessages("general", nil)
	req.NoError(err)
	req.Equal(page, messages)
	req.Equal("cursor", *cursor)

	found, err := svc.Search(context.Background(), "general", "hi")
	req.NoError(err)
	req.Equal(page, found)
}
