package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

type snapshotter interface {
	Snapshot() observability.Stats
}

// StatsWorker periodically logs presence counters and process usage.
type StatsWorker struct {
	log      *slog.Logger
	monitor  snapshotter
	interval time.Duration
}

func NewStatsWorker(log *slog.Logger, monitor snapshotter, interval time.Duration) StatsWorker {
	return StatsWorker{log: log, monitor: monitor, interval: interval}
}

func (w StatsWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping stats worker")
			return nil
		case <-ticker.C:
			w.report()
		}
	}
}

func (w StatsWorker) report() {
	stats := w.monitor.Snapshot()
	w.log.Info("Relay stats",
		"connections", stats.Connections,
		"rooms", stats.Rooms,
		"connections_opened", stats.ConnectionsOpened,
		"messages_archived", stats.MessagesArchived,
		"archive_failures", stats.ArchiveFailures,
		"rss_mb", stats.RssMb,
		"cpu_percent", stats.CPUPercent,
		"goroutines", stats.Goroutines,
	)
}
