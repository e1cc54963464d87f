//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	fieldRoom    = "room"
	fieldContent = "content"
	fieldAuthor  = "author"
	fieldLang    = "lang"

	defaultSearchLimit = 20
	timestampDigits    = 19
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages(room domain.RoomName, cursor *string) ([]DiskMessage, *string, error)
	Search(ctx context.Context, room domain.RoomName, query string) ([]DiskMessage, error)
}

// DiskMessage is an archived message-delivered event.
type DiskMessage struct {
	ID      domain.MessageID
	Room    domain.RoomName
	Author  string
	Content string
	Lang    string
	At      time.Time
}

// MessageRepository stores messages in badger and indexes their content in bluge.
// Badger is the source of truth, the bluge document id is the badger key.
type MessageRepository struct {
	db            *badger.DB
	index         *bluge.Writer
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, index *bluge.Writer, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, index: index, log: log, limitMessages: limitMessages}
}

// StoreMessage persists a message in BadgerDB then indexes it.
// The key is formatted as "msg:{room}:{timestamp_padded}:{id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Keep two messages of the same nanosecond apart thanks to the message id.
//
// Room names are free text, they are base64url encoded so a ':' can't break the key layout.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := messageKey(message)
	value, err := fromDiskMessage(message)
	if err != nil {
		return err
	}
	bytes, err := proto.Marshal(value)
	if err != nil {
		return err
	}
	if err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	}); err != nil {
		return err
	}

	doc := bluge.NewDocument(key).
		AddField(bluge.NewKeywordField(fieldRoom, string(message.Room))).
		AddField(bluge.NewTextField(fieldContent, message.Content)).
		AddField(bluge.NewKeywordField(fieldAuthor, message.Author)).
		AddField(bluge.NewKeywordField(fieldLang, message.Lang))
	return m.index.Update(doc.ID(), doc)
}

// GetMessages pages the history of a room newest first.
// Thanks to the padded timestamp in the key, a reverse prefix scan yields messages by time.
// The returned cursor is to be given back to get the next, older, page. It is nil when nothing was read.
func (m MessageRepository) GetMessages(room domain.RoomName, cursor *string) ([]DiskMessage, *string, error) {
	if cursor != nil && !validCursor(*cursor) {
		return nil, nil, fmt.Errorf("%w: %q", errors.ErrInvalidCursor, *cursor)
	}

	var byteMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := roomPrefix(room)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Past the newest possible key: msg:{room}:9999999999999999999
			seekKey = append(prefix, []byte(strings.Repeat("9", timestampDigits+1))...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			byteMessages = append(byteMessages, value)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages, err := decodeAll(byteMessages)
	if err != nil {
		return nil, nil, err
	}
	if len(messages) == 0 {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

// Search runs a full text match on the content of a room's messages, best matches first.
func (m MessageRepository) Search(ctx context.Context, room domain.RoomName, query string) ([]DiskMessage, error) {
	if strings.TrimSpace(query) == "" {
		return []DiskMessage{}, nil
	}
	reader, err := m.index.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			m.log.Debug("Unable to close index reader", "error", err)
		}
	}()

	limit := defaultSearchLimit
	if m.limitMessages != nil {
		limit = *m.limitMessages
	}
	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(string(room)).SetField(fieldRoom)).
		AddMust(bluge.NewMatchQuery(query).SetField(fieldContent))
	matches, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var keys []string
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				keys = append(keys, string(value))
			}
			return true
		})
		if err != nil {
			break
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}
	return m.load(keys)
}

// load fetches messages by key, skipping keys whose value is gone.
func (m MessageRepository) load(keys []string) ([]DiskMessage, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(key))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			byteMessages = append(byteMessages, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeAll(byteMessages)
}

func roomPrefix(room domain.RoomName) string {
	return fmt.Sprintf("msg:%s:", base64.RawURLEncoding.EncodeToString([]byte(room)))
}

func messageKey(message DiskMessage) string {
	return fmt.Sprintf("%s%0*d:%s", roomPrefix(message.Room), timestampDigits, message.At.UnixNano(), message.ID)
}

// validCursor accepts the "{timestamp_padded}:{id}" tail of a key.
func validCursor(cursor string) bool {
	ts, id, found := strings.Cut(cursor, ":")
	if !found || id == "" || len(ts) != timestampDigits {
		return false
	}
	_, err := strconv.ParseUint(ts, 10, 64)
	return err == nil
}

func decodeAll(byteMessages [][]byte) ([]DiskMessage, error) {
	messages := make([]DiskMessage, 0, len(byteMessages))
	for _, b := range byteMessages {
		message, err := DecodeMessage(b)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// DecodeMessage reads a value as written by StoreMessage.
func DecodeMessage(b []byte) (DiskMessage, error) {
	var value structpb.Struct
	if err := proto.Unmarshal(b, &value); err != nil {
		return DiskMessage{}, err
	}
	return toDiskMessage(&value)
}

// RoomPrefix is the badger key prefix of a room, "msg:" alone covers every room.
func RoomPrefix(room domain.RoomName) string {
	if room == "" {
		return "msg:"
	}
	return roomPrefix(room)
}

func fromDiskMessage(message DiskMessage) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":      string(message.ID),
		"room":    string(message.Room),
		"author":  message.Author,
		"content": message.Content,
		"lang":    message.Lang,
		"at":      message.At.UTC().Format(time.RFC3339Nano),
	})
}

func toDiskMessage(value *structpb.Struct) (DiskMessage, error) {
	fields := value.GetFields()
	str := func(name string) string { return fields[name].GetStringValue() }
	at, err := time.Parse(time.RFC3339Nano, str("at"))
	if err != nil {
		return DiskMessage{}, err
	}
	return DiskMessage{
		ID:      domain.MessageID(str("id")),
		Room:    domain.RoomName(str("room")),
		Author:  str("author"),
		Content: str("content"),
		Lang:    str("lang"),
		At:      at.UTC(),
	}, nil
}

// NoopMessageRepository answers with empty results when the archive is disabled.
type NoopMessageRepository struct{}

func (NoopMessageRepository) StoreMessage(DiskMessage) error { return nil }

func (NoopMessageRepository) GetMessages(domain.RoomName, *string) ([]DiskMessage, *string, error) {
	return []DiskMessage{}, nil, nil
}

func (NoopMessageRepository) Search(context.Context, domain.RoomName, string) ([]DiskMessage, error) {
	return []DiskMessage{}, nil
}

// Authors lists the distinct authors of a page, in order of appearance.
func Authors(messages []DiskMessage) []string {
	return lo.Uniq(lo.Map(messages, func(m DiskMessage, _ int) string { return m.Author }))
}
