package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/direclaw/direclaw/internal/channel"
	"github.com/direclaw/direclaw/internal/queue"
)

// DefaultQueuePollInterval and DefaultHeartbeatInterval are spec §4.3's
// worker polling defaults.
const (
	DefaultQueuePollInterval   = time.Second
	DefaultHeartbeatInterval   = time.Hour
	queueProcessorWorkerPrefix = "queue_processor"
	channelWorkerPrefix        = "channel_"
	heartbeatWorkerID          = "heartbeat"
)

// QueueProcessorWorker wraps an internal/queue.Worker as the always-on
// "queue_processor" managed worker: its Tick method already implements
// spec §4.3's tick_fn contract (claim, dispatch to the scheduler, never
// block past one poll), so the supervisor only adds the id/health
// bookkeeping layer on top.
func QueueProcessorWorker(w *queue.Worker, interval time.Duration, logger *slog.Logger) *ManagedWorker {
	if interval <= 0 {
		interval = DefaultQueuePollInterval
	}
	return NewManagedWorker(queueProcessorWorkerPrefix, interval, w.Tick, logger)
}

// ChannelWorker wraps a channel.Adapter as a "channel_<profile>" managed
// worker, one per enabled channel profile per spec §4.3. Each tick polls
// the adapter for new inbound messages and writes them to
// queue/incoming, then drains every queue/outgoing file belonging to
// this adapter's channel and hands it to Deliver, the two halves of one
// channel's lifecycle share a single polling cadence rather than two
// separate workers.
func ChannelWorker(profileID string, adapter channel.Adapter, store *queue.Store, interval time.Duration, logger *slog.Logger) *ManagedWorker {
	if interval <= 0 {
		interval = DefaultQueuePollInterval
	}
	return NewManagedWorker(channelWorkerPrefix+profileID, interval, channelTick(adapter, store), logger)
}

// HeartbeatWorker returns the optional "heartbeat" worker. Per spec §3,
// heartbeat is itself a channel value: each tick polls the
// channel.HeartbeatAdapter for a fresh beat and writes it to
// queue/incoming like any other message, so it flows through the normal
// selector/workflow pipeline instead of bypassing it with a side HTTP
// ping. Only registered when monitoring.heartbeat_interval > 0; callers
// must check that themselves and skip AddWorker otherwise, so a zero
// interval is unambiguously "disabled" rather than silently defaulting.
func HeartbeatWorker(adapter *channel.HeartbeatAdapter, store *queue.Store, interval time.Duration, logger *slog.Logger) *ManagedWorker {
	return NewManagedWorker(heartbeatWorkerID, interval, channelTick(adapter, store), logger)
}

// channelTick builds the shared poll-then-deliver tick function for any
// channel.Adapter: new inbound messages are written to queue/incoming,
// then every queue/outgoing file for this adapter's channel is drained
// through Deliver.
func channelTick(adapter channel.Adapter, store *queue.Store) TickFunc {
	return func(ctx context.Context) error {
		msgs, err := adapter.Poll(ctx)
		if err != nil {
			return fmt.Errorf("channel %s: poll: %w", adapter.ChannelID(), err)
		}
		for _, m := range msgs {
			if err := store.WriteIncoming(m); err != nil {
				return fmt.Errorf("channel %s: write incoming: %w", adapter.ChannelID(), err)
			}
		}

		names, err := store.ListOutgoing()
		if err != nil {
			return fmt.Errorf("channel %s: list outgoing: %w", adapter.ChannelID(), err)
		}
		for _, name := range names {
			out, err := store.ReadOutgoing(name)
			if err != nil {
				continue // claimed or deleted by a concurrent tick
			}
			if out.Channel != adapter.ChannelID() {
				continue
			}
			if err := adapter.Deliver(ctx, out); err != nil {
				return fmt.Errorf("channel %s: deliver: %w", adapter.ChannelID(), err)
			}
			if err := store.DeleteOutgoing(name); err != nil {
				return fmt.Errorf("channel %s: delete delivered outgoing: %w", adapter.ChannelID(), err)
			}
		}
		return nil
	}
}
