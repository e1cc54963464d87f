package main

import (
	"chat-relay/contract"
	httpapi "chat-relay/infrastructure/http"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Returning instead of exiting lets every defer (database, index) run before the process ends.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Relay core
	registry := runtime.NewRegistry()
	fanout := runtime.NewFanout(logger, registry, config.SinkTimeout)
	scheduler := runtime.NewReceiptScheduler(logger, registry, fanout, config.ReceiptDelay)
	router := runtime.NewRouter(logger, registry, fanout, scheduler, config.TypingTimeout)
	monitor := observability.NewMonitoringManager(logger, registry)

	words := config.Words()
	if config.CensoredWordsDir != "" {
		data, err := moderation.NewCensoredLoader(os.DirFS(config.CensoredWordsDir)).LoadAll(".")
		if err != nil {
			return exitConfig, fmt.Errorf("censored words loading failed: %w", err)
		}
		logger.Info("Censored dictionaries loaded", "languages", data.Languages, "words", len(data.Words))
		words = append(words, data.Words...)
	}
	if len(words) > 0 {
		moderator, err := moderation.NewModerator(words, charReplacement, logger)
		if err != nil {
			return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
		}
		router.WithCensor(moderator)
		logger.Info("Moderation enabled", "words", len(words))
	}

	// 4. Archive (BadgerDB + Bluge), optional
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	background := []contract.Worker{workers.NewStatsWorker(logger, monitor, config.StatsInterval)}
	var repository repositories.IMessageRepository = repositories.NoopMessageRepository{}

	if config.ArchiveEnabled {
		db, err := badger.Open(buildBadgerOpts(ctx, config, logger))
		if err != nil {
			return exitRuntime, fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			logger.Info("Closing BadgerDB...")
			_ = db.Close()
		}()

		blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
		if err != nil {
			return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
		}
		defer func() {
			logger.Info("Closing Bluge...")
			_ = blugeWriter.Close()
		}()

		messageRepository := repositories.NewMessageRepository(db, blugeWriter, logger, config.LimitMessages)
		queue := workers.NewArchiveQueue(config.ArchiveBufferSize)
		router.WithStore(queue)
		repository = messageRepository
		background = append(background, workers.NewArchiveWorker(logger, queue, messageRepository, monitor))

		if logger.Enabled(ctx, slog.LevelDebug) {
			logger.Info("Debug archive inspector available", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
			internal.StartDebugServer(logger, db, config.DebugPort, "/inspect", repositories.InspectMessage,
				func() map[string]any {
					stats := monitor.Snapshot()
					return map[string]any{"Connections": stats.Connections, "Rooms": stats.Rooms, "Archived": stats.MessagesArchived}
				})
		}
	}

	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Add(background...).Run(ctx)
	}()

	// 5. HTTP & WebSocket
	controller := ws.NewController(logger, router, monitor, ws.Options{
		BufferSize:   config.ConnectionBufferSize,
		ReadLimit:    config.ReadLimit,
		WriteTimeout: config.WriteTimeout,
		PingPeriod:   config.PingPeriod,
	})
	engine := httpapi.SetupRouter(config.GinMode, httpapi.Handlers{
		Log:            logger,
		Auth:           services.NewAuthService([]byte(config.JwtSecret), config.AuthTokenDuration),
		Chat:           services.NewChatService(registry, repository),
		Monitor:        monitor,
		WebSocket:      controller.Handle(ctx),
		ArchiveEnabled: config.ArchiveEnabled,
	})
	srv := &http.Server{Addr: config.Addr(), Handler: engine}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting relay", "address", config.Addr(), "at", time.Now().UTC())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 7. Final Cleanup (Graceful Shutdown)
	// Pumps are bound to ctx, stopping it closes every session and dispatches their disconnects.
	logger.Info("Shutting down gracefully...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	scheduler.Wait()
	sup.Stop()
	<-supDone
	logger.Info("Program stopped cleanly")

	return code, runErr
}

func buildBadgerOpts(ctx context.Context, config internal.Config, logger *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
