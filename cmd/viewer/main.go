package main

import (
	"chat-relay/domain"
	"chat-relay/internal"
	"chat-relay/repositories"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Config is the viewer's own, it must start without the relay's secrets.
type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	DebugPort      int    `env:"DEBUG_PORT,default=8082"`
	Room           string `env:"VIEWER_ROOM,default=general"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`
}

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logger := logs.GetLoggerFromString("INFO")

	// 2. Open Badger in Read-Only mode
	// BypassLockGuard allows opening while the relay holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Summary of the latest page of the configured room
	repository := repositories.NewMessageRepository(db, nil, logger, config.LimitMessages)
	page, _, err := repository.GetMessages(domain.RoomName(config.Room), nil)
	if err != nil {
		log.Fatalf("Failed to read room %s: %v", config.Room, err)
	}
	fmt.Printf("Room %s: %d recent messages by %s\n", config.Room, len(page), strings.Join(repositories.Authors(page), ", "))

	// 4. Serve the inspector until killed
	stats := func() map[string]any {
		return map[string]any{
			"Status": "Viewer Mode (Read-Only)",
			"Time":   time.Now().Format(time.RFC822),
			"Room":   config.Room,
		}
	}
	fmt.Printf("🌐 Viewer started at http://localhost:%d/inspect\n", config.DebugPort)
	internal.StartDebugServer(logger, db, config.DebugPort, "/inspect", repositories.InspectMessage, stats)
	select {}
}
