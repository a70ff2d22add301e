package channelprofilecmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/direclaw/direclaw/internal/cli/shared"
	"github.com/direclaw/direclaw/internal/config"
)

func withTempStateRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	_, stateRootPtr := shared.RegisterFlagPointers()
	*stateRootPtr = root
	t.Cleanup(func() { *stateRootPtr = "" })

	cfg := config.Default(root)
	cfg.Orchestrators = map[string]config.OrchestratorRef{"orc-a": {}, "orc-b": {}}
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, cfg.Save(config.GlobalConfigPath(root)))
	return root
}

func TestAddShowRemove(t *testing.T) {
	root := withTempStateRoot(t)

	add := newAddCommand()
	add.SetArgs([]string{"slack-main", "--channel", "slack", "--orchestrator-id", "orc-a"})
	require.NoError(t, add.Execute())

	show := newShowCommand()
	show.SetArgs([]string{"slack-main"})
	assert.NoError(t, show.Execute())

	set := newSetOrchestratorCommand()
	set.SetArgs([]string{"slack-main", "orc-b"})
	require.NoError(t, set.Execute())

	cfg, err := config.Load(config.GlobalConfigPath(root))
	require.NoError(t, err)
	assert.Equal(t, "orc-b", cfg.ChannelProfiles["slack-main"].OrchestratorID)

	remove := newRemoveCommand()
	remove.SetArgs([]string{"slack-main"})
	require.NoError(t, remove.Execute())
}

func TestAdd_RejectsUnknownOrchestrator(t *testing.T) {
	withTempStateRoot(t)

	add := newAddCommand()
	add.SetArgs([]string{"slack-x", "--channel", "slack", "--orchestrator-id", "missing"})
	assert.Error(t, add.Execute())
}
