package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	internallog "github.com/direclaw/direclaw/internal/log"
)

// TickFunc performs one polling pass. Errors are recorded on the worker's
// health snapshot, not propagated: a single bad tick must not bring down
// the loop, per spec §4.3's "tick_fn invoked on a polling cadence" model.
type TickFunc func(ctx context.Context) error

// ManagedWorker is the generic polling worker spec §4.3 describes: a
// spec_id, a start(ctx) loop, a stop signal, a tick_fn, and an
// atomically-updated health snapshot. queue_processor, channel_<profile>,
// and heartbeat are all one of these, differing only in id, interval, and
// tick_fn; channel_<profile> and heartbeat wrap internal/channel
// adapters and queue_processor wraps internal/queue.Worker.Tick (see
// ChannelWorker, HeartbeatWorker and QueueProcessorWorker in registry.go).
type ManagedWorker struct {
	id       string
	interval time.Duration
	tick     TickFunc
	logger   *slog.Logger

	mu     sync.Mutex
	health WorkerHealth
}

// NewManagedWorker returns a worker that calls tick every interval once
// started. A non-positive interval defaults to 1s, spec §4.3's default
// for queue_processor and channel_<profile>.
func NewManagedWorker(id string, interval time.Duration, tick TickFunc, logger *slog.Logger) *ManagedWorker {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ManagedWorker{
		id:       id,
		interval: interval,
		tick:     tick,
		logger:   internallog.WithComponent(logger, "supervisor.worker."+id),
	}
}

// ID returns the worker's spec_id.
func (w *ManagedWorker) ID() string { return w.id }

// Run polls tick on interval until ctx is cancelled (the worker's
// stop_signal). Ticks never overlap: a slow tick simply delays the next
// one, matching internal/queue.Worker.Run's ticker-plus-single-goroutine
// shape rather than firing concurrent ticks.
func (w *ManagedWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runTick(ctx)
		}
	}
}

func (w *ManagedWorker) runTick(ctx context.Context) {
	err := w.tick(ctx)

	w.mu.Lock()
	w.health.LastTickAt = time.Now()
	w.health.TickCount++
	if err != nil {
		w.health.LastError = err.Error()
	} else {
		w.health.LastError = ""
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("worker tick failed", internallog.Error(err))
	}
}

// Health returns the worker's latest snapshot.
func (w *ManagedWorker) Health() WorkerHealth {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.health
}
