package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SetThenGetPrefersKeychain(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "anthropic_api_key", "sk-manager-1"))

	value, err := m.Get(ctx, "anthropic_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-manager-1", value)

	_ = m.Delete(ctx, "anthropic_api_key")
}

func TestManager_GetMissingReturnsNotFound(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	_, err = m.Get(context.Background(), "never-set-xyz")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestManager_DeleteRemovesFromAllBackends(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "codex_api_key", "sk-manager-2"))
	require.NoError(t, m.Delete(ctx, "codex_api_key"))

	_, err = m.Get(ctx, "codex_api_key")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestManager_ListMergesBackends(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "list_key_1", "v1"))
	require.NoError(t, m.Set(ctx, "list_key_2", "v2"))
	defer func() {
		_ = m.Delete(ctx, "list_key_1")
		_ = m.Delete(ctx, "list_key_2")
	}()

	keys, err := m.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, "list_key_1")
	assert.Contains(t, keys, "list_key_2")
}
