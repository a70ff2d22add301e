package fsutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", "runtime.json")

	err := WriteAtomic(path, []byte(`{"pid":1}`), 0o600)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"pid":1}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteAtomic_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")

	require.NoError(t, WriteAtomic(path, []byte("a"), 0o600))
	require.NoError(t, WriteAtomic(path, []byte("b"), 0o600))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run.json", entries[0].Name())
}

func TestRenameAtomic_MovesFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "incoming", "m1.json")
	dst := filepath.Join(dir, "processing", "m1.json")

	require.NoError(t, WriteAtomic(src, []byte("{}"), 0o600))
	require.NoError(t, RenameAtomic(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestCanonicalizeUnder(t *testing.T) {
	root := "/state/runs/run-1"

	resolved, ok, err := CanonicalizeUnder(root, "plan.md")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/state/runs/run-1/plan.md", resolved)

	_, ok, err = CanonicalizeUnder(root, "../escape.md")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = CanonicalizeUnder(root, "/etc/passwd")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("run-abc123-xy9"))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID(".."))
	assert.False(t, ValidID("a/b"))
	assert.False(t, ValidID("a b"))
}

func TestNewRunID_Format(t *testing.T) {
	id, err := NewRunID(time.Unix(1700000000, 0))
	require.NoError(t, err)
	assert.Regexp(t, `^run-[0-9a-z]+-[0-9a-z]+$`, id)
	assert.True(t, ValidID(id))
}
