package supervisor

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/direclaw/direclaw/internal/workflow"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nilWriter{}, nil))
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRecoverStrandedRuns_MarksOldRunningRunFailed(t *testing.T) {
	root := t.TempDir()
	store := workflow.NewRunStore(root)
	now := time.Now()

	require.NoError(t, store.SaveRun(&workflow.RunRecord{
		RunID: "old", WorkflowID: "deploy", State: workflow.RunRunning,
		UpdatedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, store.SaveRun(&workflow.RunRecord{
		RunID: "recent", WorkflowID: "deploy", State: workflow.RunRunning,
		UpdatedAt: now.Add(-time.Second),
	}))
	require.NoError(t, store.SaveRun(&workflow.RunRecord{
		RunID: "done", WorkflowID: "deploy", State: workflow.RunSucceeded,
		UpdatedAt: now.Add(-time.Hour),
	}))

	failed, err := recoverStrandedRuns(context.Background(), store, 15*time.Minute, now, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, failed)

	record, err := store.LoadRun("old")
	require.NoError(t, err)
	assert.Equal(t, workflow.RunFailed, record.State)
	assert.Equal(t, "supervisor_recovery", record.TerminalReason)

	recent, err := store.LoadRun("recent")
	require.NoError(t, err)
	assert.Equal(t, workflow.RunRunning, recent.State)
}

func TestRecoverStrandedRuns_NoRuns(t *testing.T) {
	root := t.TempDir()
	store := workflow.NewRunStore(root)
	failed, err := recoverStrandedRuns(context.Background(), store, 15*time.Minute, time.Now(), discardLogger())
	require.NoError(t, err)
	assert.Empty(t, failed)
}
