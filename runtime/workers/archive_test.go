package workers

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/repositories"
	"context"
	goerrors "errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type countingMetrics struct {
	archived atomic.Int32
	failures atomic.Int32
}

func (m *countingMetrics) IncrMessagesArchived() { m.archived.Add(1) }
func (m *countingMetrics) IncrArchiveFailures()  { m.failures.Add(1) }

func TestArchiveQueue_Drops_When_Full(t *testing.T) {
	req := require.New(t)
	queue := NewArchiveQueue(1)

	req.NoError(queue.StoreMessage(context.Background(), domain.Message{ID: "1"}))
	err := queue.StoreMessage(context.Background(), domain.Message{ID: "2"})

	req.ErrorIs(err, errors.ErrArchiveFull)
	req.Equal(1, queue.Len())
}

func TestArchiveWorker_Stores_With_Language(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepository := mocks.NewMockIMessageRepository(ctrl)
	metrics := &countingMetrics{}
	queue := NewArchiveQueue(10)
	at := time.Now()

	stored := make(chan repositories.DiskMessage, 1)
	mockRepository.EXPECT().StoreMessage(gomock.Any()).
		DoAndReturn(func(message repositories.DiskMessage) error {
			stored <- message
			return nil
		}).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewArchiveWorker(log, queue, mockRepository, metrics).Run(ctx) }()

	// When a message is enqueued
	req.NoError(queue.StoreMessage(ctx, domain.Message{
		ID:        "m1",
		Room:      "general",
		Sender:    "Alice",
		Content:   "Hello everyone, how are you doing today? I hope the meeting went well.",
		CreatedAt: at,
	}))

	// Then it is archived with its detected language
	select {
	case message := <-stored:
		req.Equal(domain.MessageID("m1"), message.ID)
		req.Equal("Alice", message.Author)
		req.Equal("en", message.Lang)
		req.True(at.Equal(message.At))
	case <-time.After(time.Second):
		req.Fail("Message was not archived")
	}
	req.Eventually(func() bool { return metrics.archived.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestArchiveWorker_Failure_Is_Counted_Not_Retried(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepository := mocks.NewMockIMessageRepository(ctrl)
	metrics := &countingMetrics{}
	queue := NewArchiveQueue(10)

	mockRepository.EXPECT().StoreMessage(gomock.Any()).Return(goerrors.New("disk full")).Times(1)
	req.NoError(queue.StoreMessage(context.Background(), domain.Message{ID: "m1", Content: "hi"}))

	// Given the context is already cancelled, Run only drains what is buffered
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req.NoError(NewArchiveWorker(log, queue, mockRepository, metrics).Run(ctx))

	req.Equal(int32(1), metrics.failures.Load())
	req.Zero(metrics.archived.Load())
	req.Zero(queue.Len())
}

func TestDetectLang(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"Plain english sentence", "Hello everyone, how are you doing today? I hope the meeting went well.", "en"},
		{"Unreliable guess", "The quick brown fox jumps over the lazy dog and keeps running through the forest", undetermined},
		{"Empty", "", undetermined},
		{"Digits only", "12345", undetermined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, detectLang(tt.content))
		})
	}
}
