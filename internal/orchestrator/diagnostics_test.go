package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/direclaw/direclaw/internal/config"
	"github.com/direclaw/direclaw/internal/jq"
	"github.com/direclaw/direclaw/internal/provider"
	"github.com/direclaw/direclaw/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRun(t *testing.T, store *workflow.RunStore, runID, state, summary string) {
	t.Helper()
	require.NoError(t, store.SaveRun(&workflow.RunRecord{
		RunID:      runID,
		WorkflowID: "deploy",
		State:      workflow.RunState(state),
		UpdatedAt:  time.Now(),
	}))
	require.NoError(t, store.SaveProgress(&workflow.ProgressSnapshot{
		RunID:   runID,
		State:   workflow.RunState(state),
		Summary: summary,
	}))
}

func TestInvestigator_Investigate_GathersAllRunsByDefault(t *testing.T) {
	root := t.TempDir()
	store := workflow.NewRunStore(root)
	seedRun(t, store, "run-1", "failed", "timed out")
	seedRun(t, store, "run-2", "succeeded", "ok")

	inv := &Investigator{
		PrivateWorkspace: root,
		DiagnosticsAgent: config.AgentDef{Provider: "anthropic"},
		RunStore:         store,
		JQ:               jq.NewExecutor(0, 0),
		Runner: func(ctx context.Context, i provider.Invocation) (*provider.Result, error) {
			return &provider.Result{Message: "run-1 failed due to a timeout"}, nil
		},
	}
	inv.SetRunIndex(func() []string { return []string{"run-1", "run-2"} })

	res, err := inv.Investigate(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, res.Finding, "timeout")
}

func TestInvestigator_Investigate_ScopedToSingleRunID(t *testing.T) {
	root := t.TempDir()
	store := workflow.NewRunStore(root)
	seedRun(t, store, "run-1", "failed", "timed out")
	seedRun(t, store, "run-2", "succeeded", "ok")

	var capturedCount int
	inv := &Investigator{
		PrivateWorkspace: root,
		DiagnosticsAgent: config.AgentDef{Provider: "anthropic"},
		RunStore:         store,
		JQ:               jq.NewExecutor(0, 0),
		Runner: func(ctx context.Context, i provider.Invocation) (*provider.Result, error) {
			return &provider.Result{Message: "finding"}, nil
		},
	}
	inv.SetRunIndex(func() []string { return []string{"run-1", "run-2"} })

	snapshots, err := inv.resolveScope(context.Background(), "run-1")
	require.NoError(t, err)
	capturedCount = len(snapshots)
	assert.Equal(t, 1, capturedCount)
	assert.Equal(t, "run-1", snapshots[0].RunID)
}

func TestInvestigator_Investigate_ProviderFailureYieldsFindingNotError(t *testing.T) {
	root := t.TempDir()
	store := workflow.NewRunStore(root)
	seedRun(t, store, "run-1", "failed", "timed out")

	inv := &Investigator{
		PrivateWorkspace: root,
		DiagnosticsAgent: config.AgentDef{Provider: "anthropic"},
		RunStore:         store,
		JQ:               jq.NewExecutor(0, 0),
		Runner: func(ctx context.Context, i provider.Invocation) (*provider.Result, error) {
			return nil, assert.AnError
		},
	}
	inv.SetRunIndex(func() []string { return []string{"run-1"} })

	res, err := inv.Investigate(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, res.Finding, "failed")
}
