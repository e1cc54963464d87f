package workers

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"log/slog"

	"github.com/abadojack/whatlanggo"
)

const undetermined = "und"

// ArchiveQueue is the message store seen by the router.
// Enqueuing never blocks: when the archive worker lags behind, messages are dropped.
type ArchiveQueue struct {
	messages chan domain.Message
}

func NewArchiveQueue(size int) *ArchiveQueue {
	return &ArchiveQueue{messages: make(chan domain.Message, size)}
}

func (q *ArchiveQueue) StoreMessage(_ context.Context, message domain.Message) error {
	select {
	case q.messages <- message:
		return nil
	default:
		return errors.ErrArchiveFull
	}
}

func (q *ArchiveQueue) Len() int { return len(q.messages) }

type archiveMetrics interface {
	IncrMessagesArchived()
	IncrArchiveFailures()
}

// ArchiveWorker drains the queue into the repository, tagging each message with its language.
type ArchiveWorker struct {
	log        *slog.Logger
	queue      *ArchiveQueue
	repository repositories.IMessageRepository
	metrics    archiveMetrics
}

func NewArchiveWorker(log *slog.Logger, queue *ArchiveQueue, repository repositories.IMessageRepository, metrics archiveMetrics) ArchiveWorker {
	return ArchiveWorker{log: log, queue: queue, repository: repository, metrics: metrics}
}

func (w ArchiveWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			w.log.Debug("Context done, stopping archive worker")
			return nil
		case message := <-w.queue.messages:
			w.archive(message)
		}
	}
}

// drain archives what is already buffered, without waiting for more.
func (w ArchiveWorker) drain() {
	for {
		select {
		case message := <-w.queue.messages:
			w.archive(message)
		default:
			return
		}
	}
}

// archive failures are counted and logged, never retried.
func (w ArchiveWorker) archive(message domain.Message) {
	err := w.repository.StoreMessage(toDiskMessage(message))
	if err != nil {
		w.metrics.IncrArchiveFailures()
		w.log.Warn("Unable to archive message", "message_id", message.ID, "room", message.Room, "error", err)
		return
	}
	w.metrics.IncrMessagesArchived()
}

func toDiskMessage(message domain.Message) repositories.DiskMessage {
	return repositories.DiskMessage{
		ID:      message.ID,
		Room:    message.Room,
		Author:  message.Sender,
		Content: message.Content,
		Lang:    detectLang(message.Content),
		At:      message.CreatedAt.UTC(),
	}
}

func detectLang(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return undetermined
	}
	if code := info.Lang.Iso6391(); code != "" {
		return code
	}
	return undetermined
}
