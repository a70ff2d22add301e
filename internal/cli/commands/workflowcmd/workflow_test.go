package workflowcmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/direclaw/direclaw/internal/cli/shared"
	"github.com/direclaw/direclaw/internal/config"
	"github.com/direclaw/direclaw/internal/workflow"
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
		Workflows:           []string{"echo"},
		DefaultWorkflow:     "echo",
		SelectionMaxRetries: 3,
		Agents: map[string]config.AgentDef{
			"router": {Provider: "anthropic", Model: "sonnet", CanOrchestrateWorkflows: true},
		},
	}
	require.NoError(t, oc.Save(cfg.OrchestratorConfigPath("orc-1")))

	defsDir := filepath.Join(ocRoot, workflow.DefinitionsSubdir)
	require.NoError(t, os.MkdirAll(defsDir, 0o755))
	defYAML := `id: echo
steps:
  - id: reply
    type: agent_task
    agent: router
    prompt: say hi
`
	require.NoError(t, os.WriteFile(filepath.Join(defsDir, "echo.yaml"), []byte(defYAML), 0o644))

	return root, ocRoot
}

func TestListAndShow(t *testing.T) {
	setupOrchestrator(t)

	list := newListCommand()
	list.SetArgs([]string{"orc-1"})
	require.NoError(t, list.Execute())

	show := newShowCommand()
	show.SetArgs([]string{"orc-1", "echo"})
	require.NoError(t, show.Execute())

	show.SetArgs([]string{"orc-1", "missing"})
	assert.Error(t, show.Execute())
}

func TestStatusProgressCancel(t *testing.T) {
	_, ocRoot := setupOrchestrator(t)

	store := workflow.NewRunStore(ocRoot)
	run := &workflow.RunRecord{
		RunID:          "run-1",
		WorkflowID:     "echo",
		OrchestratorID: "orc-1",
		State:          workflow.RunState("running"),
		StartedAt:      time.Unix(0, 0),
		UpdatedAt:      time.Unix(0, 0),
	}
	require.NoError(t, store.SaveRun(run))
	require.NoError(t, store.SaveProgress(&workflow.ProgressSnapshot{
		RunID:      "run-1",
		WorkflowID: "echo",
		State:      workflow.RunState("running"),
		UpdatedAt:  time.Unix(0, 0),
	}))

	status := newStatusCommand()
	status.SetArgs([]string{"orc-1", "run-1"})
	require.NoError(t, status.Execute())

	progress := newProgressCommand()
	progress.SetArgs([]string{"orc-1", "run-1"})
	require.NoError(t, progress.Execute())

	cancel := newCancelCommand()
	cancel.SetArgs([]string{"orc-1", "run-1"})
	require.NoError(t, cancel.Execute())

	updated, err := store.LoadRun("run-1")
	require.NoError(t, err)
	assert.True(t, updated.CancelRequested)
}

func TestAddAndRemoveDefinition(t *testing.T) {
	_, ocRoot := setupOrchestrator(t)

	tmpDef := filepath.Join(t.TempDir(), "review.yaml")
	def := workflow.Definition{
		ID: "review",
		Steps: []workflow.StepDefinition{
			{ID: "draft", Kind: workflow.StepKind("agent_task"), Agent: "router", Prompt: "draft something"},
		},
	}
	data, err := yaml.Marshal(def)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(tmpDef, data, 0o644))

	add := newAddCommand()
	add.SetArgs([]string{"orc-1", "--file", tmpDef})
	require.NoError(t, add.Execute())

	defs, err := workflow.LoadDefinitions(ocRoot)
	require.NoError(t, err)
	assert.Contains(t, defs, "review")

	remove := newRemoveCommand()
	remove.SetArgs([]string{"orc-1", "review"})
	require.NoError(t, remove.Execute())

	defs, err = workflow.LoadDefinitions(ocRoot)
	require.NoError(t, err)
	assert.NotContains(t, defs, "review")
}

func TestRemove_RefusesDefaultWorkflow(t *testing.T) {
	setupOrchestrator(t)

	remove := newRemoveCommand()
	remove.SetArgs([]string{"orc-1", "echo"})
	assert.Error(t, remove.Execute())
}
