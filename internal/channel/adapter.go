// Package channel implements DireClaw's channel adapter boundary: the
// interface a chat surface (or the in-process local/heartbeat surfaces)
// implements to move messages into queue/incoming and deliver shaped
// replies out of queue/outgoing. Grounded on the directory-and-filename
// contract internal/queue already establishes; an adapter's only job is
// to produce Messages and consume OutgoingMessages, never to touch the
// store's internals directly.
package channel

import (
	"context"

	"github.com/direclaw/direclaw/internal/queue"
)

// Adapter is one channel surface: a chat platform bridge, or one of the
// two in-process adapters (local, heartbeat) built directly into the
// daemon. ChannelProfileID-scoped adapters (spec §3's channel_<profile>
// worker) each get their own Adapter instance.
type Adapter interface {
	// ChannelID returns the channel value this adapter produces/consumes
	// messages for (e.g. "local", "heartbeat", "slack").
	ChannelID() string

	// Poll returns newly observed messages since the last call, or nil
	// if there is nothing new. Called on the owning worker's polling
	// cadence; a Poll that returns an error is logged and retried next
	// tick, never fatal to the worker.
	Poll(ctx context.Context) ([]*queue.Message, error)

	// Deliver sends a shaped outgoing message out through this channel.
	// Returns an error if delivery failed; the caller decides whether to
	// retry or drop the outgoing file.
	Deliver(ctx context.Context, out *queue.OutgoingMessage) error
}
