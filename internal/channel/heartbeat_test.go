package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatAdapter_ChannelID(t *testing.T) {
	a := NewHeartbeatAdapter(nil)
	assert.Equal(t, "heartbeat", a.ChannelID())
}

func TestHeartbeatAdapter_PollReturnsOneFreshMessagePerCall(t *testing.T) {
	fixed := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	a := NewHeartbeatAdapter(func() time.Time { return fixed })

	first, err := a.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "heartbeat", first[0].Channel)
	assert.Equal(t, fixed.Unix(), first[0].Timestamp)

	second, err := a.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].MessageID, second[0].MessageID)
}

func TestHeartbeatAdapter_DeliverIsNoop(t *testing.T) {
	a := NewHeartbeatAdapter(nil)
	assert.NoError(t, a.Deliver(context.Background(), nil))
}
