package repositories

import (
	"chat-relay/internal"
	"fmt"
)

// InspectMessage maps an archived message to a row of the debug inspector.
func InspectMessage(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)
	message, err := DecodeMessage(val)
	if err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}
	row.Type = "CHAT"
	row.Namespace = string(message.Room)
	row.Timestamp = message.At.Format("15:04:05")
	row.Detail = fmt.Sprintf("[%s] %s: %s", message.Lang, message.Author, message.Content)
	return row
}
