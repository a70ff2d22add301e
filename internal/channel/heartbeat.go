package channel

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/direclaw/direclaw/internal/queue"
)

// HeartbeatAdapter is the in-process channel backing spec §3's heartbeat
// value: a self-ticking liveness message that flows through the same
// incoming/outgoing pipeline as any other channel, rather than a side
// HTTP beacon. Its outgoing reply (if the configured workflow produces
// one) lands in queue/outgoing/<messageId>.json per
// Message.OutgoingFilename's heartbeat special case.
type HeartbeatAdapter struct {
	now func() time.Time
}

// NewHeartbeatAdapter returns a HeartbeatAdapter. now defaults to
// time.Now.
func NewHeartbeatAdapter(now func() time.Time) *HeartbeatAdapter {
	if now == nil {
		now = time.Now
	}
	return &HeartbeatAdapter{now: now}
}

// ChannelID implements Adapter.
func (a *HeartbeatAdapter) ChannelID() string { return "heartbeat" }

// Poll always returns exactly one fresh heartbeat message: the owning
// worker's polling interval is itself the heartbeat cadence, so every
// tick is one beat.
func (a *HeartbeatAdapter) Poll(ctx context.Context) ([]*queue.Message, error) {
	now := a.now()
	return []*queue.Message{{
		Channel:   a.ChannelID(),
		MessageID: "hb-" + uuid.NewString(),
		Timestamp: now.Unix(),
		IsDirect:  true,
	}}, nil
}

// Deliver is a no-op: a heartbeat's outgoing file is a record of the beat
// having been answered, consumed by whatever wrote queue/outgoing, not by
// this adapter. Supervisor health already tracks whether ticks are
// landing; nothing external needs to be notified here.
func (a *HeartbeatAdapter) Deliver(ctx context.Context, out *queue.OutgoingMessage) error {
	return nil
}
