package control

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListen_CreatesSocketWithRestrictedPermissions(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "nested", "control.sock")

	ln, err := Listen(socketPath)
	require.NoError(t, err)
	defer ln.Close()

	info, err := os.Stat(socketPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	conn.Close()
}

func TestListen_RemovesStaleSocketFile(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "control.sock")

	// Simulate a leftover socket file from an unclean shutdown: a listener
	// never binds to it, so net.Listen closing it normally never applies.
	require.NoError(t, os.WriteFile(socketPath, nil, 0o600))

	ln, err := Listen(socketPath)
	require.NoError(t, err)
	defer ln.Close()
}
