package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// TestMain installs go-keyring's in-memory mock backend so these tests
// are deterministic in a sandbox with no real OS keychain service.
func TestMain(m *testing.M) {
	keyring.MockInit()
	m.Run()
}

func TestKeychainBackend_Metadata(t *testing.T) {
	b := NewKeychainBackend()
	assert.Equal(t, "keychain", b.Name())
	assert.Equal(t, KeychainPriority, b.Priority())
	assert.True(t, b.Available())
}

func TestKeychainBackend_SetGetDeleteRoundTrip(t *testing.T) {
	b := NewKeychainBackend()
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "anthropic_api_key", "sk-test-123"))

	value, err := b.Get(ctx, "anthropic_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", value)

	require.NoError(t, b.Delete(ctx, "anthropic_api_key"))

	_, err = b.Get(ctx, "anthropic_api_key")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestKeychainBackend_DeleteMissingReturnsNotFound(t *testing.T) {
	b := NewKeychainBackend()
	err := b.Delete(context.Background(), "never-set")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestKeychainBackend_ListReturnsEmpty(t *testing.T) {
	b := NewKeychainBackend()
	keys, err := b.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}
