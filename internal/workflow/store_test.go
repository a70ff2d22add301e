package workflow

import (
	"testing"
	"time"

	direrrors "github.com/direclaw/direclaw/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStore_SaveAndLoadRun(t *testing.T) {
	store := NewRunStore(t.TempDir())
	run := &RunRecord{RunID: "run-1", WorkflowID: "echo", State: RunRunning, StartedAt: time.Now()}

	require.NoError(t, store.SaveRun(run))

	loaded, err := store.LoadRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, run.WorkflowID, loaded.WorkflowID)
	assert.Equal(t, RunRunning, loaded.State)
}

func TestRunStore_LoadRun_NotFound(t *testing.T) {
	store := NewRunStore(t.TempDir())
	_, err := store.LoadRun("run-missing")
	require.Error(t, err)
	var notFound *direrrors.RunNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRunStore_SaveAndLoadProgress(t *testing.T) {
	store := NewRunStore(t.TempDir())
	p := &ProgressSnapshot{RunID: "run-1", WorkflowID: "echo", State: RunWaiting, Summary: "waiting on review"}
	require.NoError(t, store.SaveProgress(p))

	loaded, err := store.LoadProgress("run-1")
	require.NoError(t, err)
	assert.Equal(t, "waiting on review", loaded.Summary)
}

func TestRunStore_AttemptDirAndMeta(t *testing.T) {
	store := NewRunStore(t.TempDir())
	meta := &AttemptMeta{RunID: "run-1", StepID: "step1", Attempt: 1, Agent: "writer", StartedAt: time.Now()}
	require.NoError(t, store.SaveAttemptMeta(meta))

	dir := store.AttemptDir("run-1", "step1", 1)
	assert.DirExists(t, dir)
}

func TestRunStore_ListRunIDs(t *testing.T) {
	store := NewRunStore(t.TempDir())
	require.NoError(t, store.SaveRun(&RunRecord{RunID: "run-1", WorkflowID: "echo", State: RunRunning}))
	require.NoError(t, store.SaveRun(&RunRecord{RunID: "run-2", WorkflowID: "echo", State: RunSucceeded}))
	// Progress/attempt directories share the root; they must not surface
	// as run ids.
	require.NoError(t, store.SaveProgress(&ProgressSnapshot{RunID: "run-1", WorkflowID: "echo"}))

	ids, err := store.ListRunIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"run-1", "run-2"}, ids)
}

func TestRunStore_ListRunIDs_EmptyWhenNoRuns(t *testing.T) {
	store := NewRunStore(t.TempDir())
	ids, err := store.ListRunIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
