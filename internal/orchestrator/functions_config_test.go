package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/direclaw/direclaw/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig() *config.Config {
	return &config.Config{
		WorkspacesPath: "/tmp/workspaces",
		Orchestrators: map[string]config.OrchestratorRef{
			"main":      {PrivateWorkspace: "/tmp/main"},
			"secondary": {PrivateWorkspace: "/tmp/secondary"},
		},
		ChannelProfiles: map[string]config.ChannelProfile{
			"slack-main": {Channel: "slack", OrchestratorID: "main"},
		},
	}
}

func TestRegisterConfigFunctions_ListAndShow(t *testing.T) {
	cfg := newTestConfig()
	path := filepath.Join(t.TempDir(), "config.yaml")
	reg := NewFunctionRegistry()
	RegisterConfigFunctions(reg, cfg, path)

	out, err := reg.Dispatch(context.Background(), "orchestrator.list", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main", "secondary"}, out["orchestrators"])

	show, err := reg.Dispatch(context.Background(), "channel_profile.show", map[string]any{"channelProfileId": "slack-main"})
	require.NoError(t, err)
	assert.Equal(t, "main", show["orchestratorId"])
}

func TestRegisterConfigFunctions_SetOrchestrator(t *testing.T) {
	cfg := newTestConfig()
	path := filepath.Join(t.TempDir(), "config.yaml")
	reg := NewFunctionRegistry()
	RegisterConfigFunctions(reg, cfg, path)

	_, err := reg.Dispatch(context.Background(), "channel_profile.set_orchestrator", map[string]any{
		"channelProfileId": "slack-main",
		"orchestratorId":   "secondary",
	})
	require.NoError(t, err)
	assert.Equal(t, "secondary", cfg.ChannelProfiles["slack-main"].OrchestratorID)
	assert.FileExists(t, path)

	reloaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secondary", reloaded.ChannelProfiles["slack-main"].OrchestratorID)
}

func TestRegisterConfigFunctions_SetOrchestrator_RejectsUnknownOrchestrator(t *testing.T) {
	cfg := newTestConfig()
	path := filepath.Join(t.TempDir(), "config.yaml")
	reg := NewFunctionRegistry()
	RegisterConfigFunctions(reg, cfg, path)

	_, err := reg.Dispatch(context.Background(), "channel_profile.set_orchestrator", map[string]any{
		"channelProfileId": "slack-main",
		"orchestratorId":   "does-not-exist",
	})
	require.Error(t, err)
	assert.Equal(t, "main", cfg.ChannelProfiles["slack-main"].OrchestratorID)
}
