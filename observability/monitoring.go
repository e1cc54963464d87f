package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats is what the health endpoint and the stats worker report.
type Stats struct {
	UptimeSeconds     int64   `json:"uptime_seconds"`
	Connections       int     `json:"connections"`
	Rooms             int     `json:"rooms"`
	ConnectionsOpened uint64  `json:"connections_opened"`
	MessagesArchived  uint64  `json:"messages_archived"`
	ArchiveFailures   uint64  `json:"archive_failures"`
	RssMb             uint64  `json:"rss_mb"`
	CPUPercent        float64 `json:"cpu_percent"`
	AllocMemMb        uint64  `json:"alloc_mem_mb"`
	NumGC             uint32  `json:"num_gc"`
	Goroutines        int     `json:"goroutines"`
}

type presence interface {
	Count() (connections int, rooms int)
}

// MonitoringManager aggregates relay counters and process metrics.
// Counters are atomics, safe to bump from any connection goroutine.
type MonitoringManager struct {
	log       *slog.Logger
	presence  presence
	startedAt time.Time
	proc      *process.Process

	connectionsOpened atomic.Uint64
	messagesArchived  atomic.Uint64
	archiveFailures   atomic.Uint64
}

func NewMonitoringManager(log *slog.Logger, presence presence) *MonitoringManager {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process metrics unavailable", "error", err)
		proc = nil
	}
	return &MonitoringManager{log: log, presence: presence, startedAt: time.Now(), proc: proc}
}

func (mm *MonitoringManager) IncrConnectionsOpened() {
	mm.connectionsOpened.Add(1)
}

func (mm *MonitoringManager) IncrMessagesArchived() {
	mm.messagesArchived.Add(1)
}

func (mm *MonitoringManager) IncrArchiveFailures() {
	mm.archiveFailures.Add(1)
}

func (mm *MonitoringManager) Uptime() time.Duration {
	return time.Since(mm.startedAt)
}

func (mm *MonitoringManager) Snapshot() Stats {
	connections, rooms := mm.presence.Count()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := Stats{
		UptimeSeconds:     int64(mm.Uptime().Seconds()),
		Connections:       connections,
		Rooms:             rooms,
		ConnectionsOpened: mm.connectionsOpened.Load(),
		MessagesArchived:  mm.messagesArchived.Load(),
		ArchiveFailures:   mm.archiveFailures.Load(),
		AllocMemMb:        m.Alloc / 1024 / 1024,
		NumGC:             m.NumGC,
		Goroutines:        runtime.NumGoroutine(),
	}

	if mm.proc != nil {
		if mem, err := mm.proc.MemoryInfo(); err == nil {
			stats.RssMb = mem.RSS / 1024 / 1024
		} else {
			mm.log.Debug("Error while finding process ram usage", "err", err)
		}
		if cpu, err := mm.proc.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		} else {
			mm.log.Debug("Error while finding process cpu usage", "err", err)
		}
	}
	return stats
}
