package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsWithinBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	assert.True(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-a"))
	assert.False(t, rl.Allow("client-a"))
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	assert.True(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-b"))
	assert.False(t, rl.Allow("client-a"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Allow("client-a")

	rl.Cleanup(-time.Second) // everything is "older" than a negative cutoff
	assert.Empty(t, rl.limiters)
}
