package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceGuard_AllowsPrivateWorkspace(t *testing.T) {
	root := t.TempDir()
	g := &WorkspaceGuard{OrchestratorID: "main", PrivateWorkspace: root}
	require.NoError(t, g.Check(filepath.Join(root, "work", "runs", "run-1")))
}

func TestWorkspaceGuard_AllowsGrantedSharedWorkspace(t *testing.T) {
	root := t.TempDir()
	shared := t.TempDir()
	g := &WorkspaceGuard{
		OrchestratorID:   "main",
		PrivateWorkspace: root,
		Shared:           []SharedWorkspace{{Name: "docs", Path: shared}},
	}
	require.NoError(t, g.Check(filepath.Join(shared, "notes.md")))
}

func TestWorkspaceGuard_DeniesOutsidePath(t *testing.T) {
	root := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "security.log")
	g := &WorkspaceGuard{OrchestratorID: "main", PrivateWorkspace: root, SecurityLogPath: logPath}

	err := g.Check("/etc")
	require.Error(t, err)

	data, rerr := os.ReadFile(logPath)
	require.NoError(t, rerr)
	assert.Contains(t, string(data), "workspace_denied")
	assert.Contains(t, string(data), "main")
}

func TestIsReservedOutputName(t *testing.T) {
	assert.True(t, IsReservedOutputName("prompt.md"))
	assert.True(t, IsReservedOutputName("attempt.json"))
	assert.False(t, IsReservedOutputName("plan.md"))
}

func TestResolveOutputPath_RejectsEscape(t *testing.T) {
	root := t.TempDir()
	attemptRoot := filepath.Join(root, "steps", "s1", "attempts", "1")
	_, err := ResolveOutputPath(attemptRoot, "plan", "../escape.md", "run-1", "s1", 1)
	require.Error(t, err)
}

func TestResolveOutputPath_RejectsReservedName(t *testing.T) {
	root := t.TempDir()
	attemptRoot := filepath.Join(root, "steps", "s1", "attempts", "1")
	_, err := ResolveOutputPath(attemptRoot, "plan", "prompt.md", "run-1", "s1", 1)
	require.Error(t, err)
}

func TestResolveOutputPath_InterpolatesTokens(t *testing.T) {
	root := t.TempDir()
	attemptRoot := filepath.Join(root, "steps", "s1", "attempts", "1")
	path, err := ResolveOutputPath(attemptRoot, "plan", "{{workflow.step_id}}-{{workflow.attempt}}.md", "run-1", "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(attemptRoot, "s1-1.md"), path)
}
