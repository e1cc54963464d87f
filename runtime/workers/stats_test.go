package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type countingSnapshotter struct{ calls atomic.Int32 }

func (s *countingSnapshotter) Snapshot() observability.Stats {
	s.calls.Add(1)
	return observability.Stats{Connections: 2, Rooms: 1}
}

func TestStatsWorker_Reports_Every_Interval(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitor := &countingSnapshotter{}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// When the worker runs until its context ends
	err := NewStatsWorker(log, monitor, 20*time.Millisecond).Run(ctx)

	// Then it stopped cleanly after several reports
	req.NoError(err)
	req.GreaterOrEqual(monitor.calls.Load(), int32(3))
}
