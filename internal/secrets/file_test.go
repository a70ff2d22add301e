package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_Metadata(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "file", b.Name())
	assert.Equal(t, FilePriority, b.Priority())
	assert.True(t, b.Available())
}

func TestFileBackend_SetGetDeleteRoundTrip(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "openai_api_key", "sk-test-456"))

	value, err := b.Get(ctx, "openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-456", value)

	require.NoError(t, b.Delete(ctx, "openai_api_key"))
	_, err = b.Get(ctx, "openai_api_key")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestFileBackend_PersistsAcrossInstances(t *testing.T) {
	root := t.TempDir()

	first, err := NewFileBackend(root)
	require.NoError(t, err)
	require.NoError(t, first.Set(context.Background(), "k1", "v1"))

	second, err := NewFileBackend(root)
	require.NoError(t, err)
	value, err := second.Get(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)
}

func TestFileBackend_ListReturnsStoredKeys(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "a", "1"))
	require.NoError(t, b.Set(ctx, "b", "2"))

	keys, err := b.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestFileBackend_GetMissingReturnsNotFound(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	_, err = b.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}
