package orchestratoragentcmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/direclaw/direclaw/internal/cli/shared"
	"github.com/direclaw/direclaw/internal/config"
)

func setupOrchestrator(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	_, stateRootPtr := shared.RegisterFlagPointers()
	*stateRootPtr = root
	t.Cleanup(func() { *stateRootPtr = "" })

	cfg := config.Default(root)
	cfg.Orchestrators = map[string]config.OrchestratorRef{"orc-1": {}}
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, cfg.Save(config.GlobalConfigPath(root)))

	ocRoot := cfg.OrchestratorRoot("orc-1")
	require.NoError(t, os.MkdirAll(ocRoot, 0o755))
	oc := &config.OrchestratorConfig{
		ID:                  "orc-1",
		SelectorAgent:       "router",
		Workflows:           []string{"wf-1"},
		DefaultWorkflow:     "wf-1",
		SelectionMaxRetries: 3,
		Agents: map[string]config.AgentDef{
			"router": {Provider: "anthropic", Model: "sonnet", CanOrchestrateWorkflows: true},
		},
	}
	require.NoError(t, oc.Save(cfg.OrchestratorConfigPath("orc-1")))
	return root, ocRoot
}

func TestAddShowRemoveAgent(t *testing.T) {
	root, _ := setupOrchestrator(t)

	add := newAddCommand()
	add.SetArgs([]string{"orc-1", "worker", "--provider", "openai", "--model", "gpt-5"})
	require.NoError(t, add.Execute())

	oc, err := config.LoadOrchestrator(config.Default(root).OrchestratorConfigPath("orc-1"))
	require.NoError(t, err)
	assert.Contains(t, oc.Agents, "worker")

	show := newShowCommand()
	show.SetArgs([]string{"orc-1", "worker"})
	assert.NoError(t, show.Execute())

	remove := newRemoveCommand()
	remove.SetArgs([]string{"orc-1", "worker"})
	require.NoError(t, remove.Execute())

	oc, err = config.LoadOrchestrator(config.Default(root).OrchestratorConfigPath("orc-1"))
	require.NoError(t, err)
	assert.NotContains(t, oc.Agents, "worker")
}

func TestRemove_RefusesSelectorAgent(t *testing.T) {
	setupOrchestrator(t)

	remove := newRemoveCommand()
	remove.SetArgs([]string{"orc-1", "router"})
	assert.Error(t, remove.Execute())
}

func TestReset_WritesFlagFile(t *testing.T) {
	_, ocRoot := setupOrchestrator(t)

	reset := newResetCommand()
	reset.SetArgs([]string{"orc-1", "router"})
	require.NoError(t, reset.Execute())

	_, err := os.Stat(config.AgentResetFlagPath(ocRoot, "router"))
	assert.NoError(t, err)
}
