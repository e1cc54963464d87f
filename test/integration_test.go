package test

import (
	"chat-relay/domain"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/projection"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

const (
	text   = "Hello everyone, how are you doing today? I hope the meeting went well."
	insult = "Stop hiding behind that lazy badger"
	masked = "Stop hiding behind that lazy ******"
)

func Test_Scenario(t *testing.T) {
	req := require.New(t)
	// Reduced to 16 Mo for testing (avoid 2 Go of value log)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	defer db.Close()
	index, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)
	defer index.Close()

	// 1. Wire the relay the way the server does, with the archive on
	ctx, cancel := context.WithCancel(context.Background())
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewRegistry()
	fanout := runtime.NewFanout(log, registry, 100*time.Millisecond)
	scheduler := runtime.NewReceiptScheduler(log, registry, fanout, 50*time.Millisecond)
	monitor := observability.NewMonitoringManager(log, registry)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	req.NoError(err)
	queue := workers.NewArchiveQueue(16)
	router := runtime.NewRouter(log, registry, fanout, scheduler, 3*time.Second).
		WithStore(queue).
		WithCensor(moderator)

	repository := repositories.NewMessageRepository(db, index, log, lo.ToPtr(100))
	supervisor := workers.NewSupervisor(log, 200*time.Millisecond)
	done := make(chan struct{})
	go func() {
		defer close(done)
		supervisor.Add(workers.NewArchiveWorker(log, queue, repository, monitor)).Run(ctx)
	}()
	chat := services.NewChatService(registry, repository)

	// 2. Two participants, each one seeing the room through a timeline
	alice := projection.NewTimeline("alice")
	bob := projection.NewTimeline("bob")
	router.Connect(ctx, "c-alice", alice)
	router.Connect(ctx, "c-bob", bob)
	req.NoError(router.Dispatch(ctx, "c-alice", domain.JoinCommand{DisplayName: "alice", Room: "general"}))
	req.NoError(router.Dispatch(ctx, "c-bob", domain.JoinCommand{DisplayName: "bob", Room: "general"}))
	req.Len(alice.Members(), 2)

	// 3. A message is relayed then archived with its language, another one is censored
	req.NoError(router.Dispatch(ctx, "c-alice", domain.SendMessageCommand{Text: text}))
	received, ok := bob.At(1)
	req.True(ok)
	req.Equal("alice", received.Message.Sender)
	req.Equal(text, received.Message.Text)

	req.NoError(router.Dispatch(ctx, "c-bob", domain.SendMessageCommand{Text: insult}))
	rude, ok := alice.At(2)
	req.True(ok)
	req.Equal(masked, rude.Message.Text)

	req.Eventually(func() bool {
		page, _, err := chat.GetMessages("general", nil)
		return err == nil && len(page) == 2
	}, 2*time.Second, 20*time.Millisecond)
	page, _, err := chat.GetMessages("general", nil)
	req.NoError(err)
	archived := lo.KeyBy(page, func(m repositories.DiskMessage) domain.MessageID { return m.ID })
	req.Equal(text, archived[received.Message.ID].Content)
	req.Equal("en", archived[received.Message.ID].Lang)
	req.Equal(masked, archived[rude.Message.ID].Content)

	found, err := chat.Search(ctx, "general", "meeting")
	req.NoError(err)
	req.Len(found, 1)
	req.Equal(received.Message.ID, found[0].ID)

	// 4. The receipt reaches the reader and the reaction reaches everybody
	req.Eventually(func() bool {
		entry, ok := bob.Get(received.Message.ID)
		return ok && len(entry.ReadBy) == 1
	}, time.Second, 10*time.Millisecond)
	req.NoError(router.Dispatch(ctx, "c-bob", domain.ReactCommand{MessageID: received.Message.ID, Tag: "🦡"}))
	entry, ok := alice.Get(received.Message.ID)
	req.True(ok)
	req.Equal([]string{"bob"}, entry.Reactions["🦡"])

	// 5. Presence, then shutdown
	rooms := chat.Rooms()
	req.Len(rooms, 1)
	req.Equal(domain.RoomName("general"), rooms[0].Name)
	req.NoError(router.Dispatch(ctx, "c-bob", domain.DisconnectCommand{}))
	req.Len(alice.Members(), 1)

	scheduler.Wait()
	cancel()
	<-done
	stats := monitor.Snapshot()
	req.Equal(uint64(2), stats.MessagesArchived)
	req.Zero(stats.ArchiveFailures)
	req.Equal(1, stats.Connections)
}
