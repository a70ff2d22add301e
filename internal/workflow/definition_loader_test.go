package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDefinitionYAML = `
id: triage
steps:
  - id: review
    type: agent_task
    agent: worker
    prompt: "review the ticket"
`

func TestLoadDefinitionFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDefinitionYAML), 0o600))

	def, err := LoadDefinitionFile(path)
	require.NoError(t, err)
	assert.Equal(t, "triage", def.ID)
	assert.Equal(t, "review", def.FirstStep())
}

func TestLoadDefinitionFile_RejectsMissingSteps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: empty\nsteps: []\n"), 0o600))

	_, err := LoadDefinitionFile(path)
	assert.Error(t, err)
}

func TestLoadDefinitions_MissingDirIsEmpty(t *testing.T) {
	defs, err := LoadDefinitions(filepath.Join(t.TempDir(), "nonexistent"))
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestLoadDefinitions_IndexesByID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "triage.yaml"), []byte(sampleDefinitionYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o600))

	defs, err := LoadDefinitions(dir)
	require.NoError(t, err)
	require.Contains(t, defs, "triage")
	assert.Len(t, defs, 1)
}

func TestSaveAndRemoveDefinition(t *testing.T) {
	root := t.TempDir()
	def := &Definition{ID: "triage", Steps: []StepDefinition{{ID: "review", Kind: StepAgentTask, Agent: "worker", Prompt: "go"}}}

	require.NoError(t, SaveDefinition(root, def))
	loaded, err := LoadDefinitionFile(DefinitionPath(root, "triage"))
	require.NoError(t, err)
	assert.Equal(t, "triage", loaded.ID)

	require.NoError(t, RemoveDefinition(root, "triage"))
	_, err = LoadDefinitionFile(DefinitionPath(root, "triage"))
	assert.Error(t, err)
}

func TestRemoveDefinition_UnknownWorkflow(t *testing.T) {
	root := t.TempDir()
	err := RemoveDefinition(root, "missing")
	assert.Error(t, err)
}
