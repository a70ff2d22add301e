package workflow

import (
	"context"
	"testing"

	"github.com/direclaw/direclaw/internal/config"
	"github.com/direclaw/direclaw/internal/provider"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, def *Definition, runner RunnerFunc) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	def.Index()
	return &Engine{
		OrchestratorID:   "main",
		PrivateWorkspace: root,
		Workflows:        map[string]*Definition{def.ID: def},
		Agents:           map[string]config.AgentDef{"writer": {Provider: "anthropic", Model: "sonnet"}},
		Store:            NewRunStore(root),
		Guard:            &WorkspaceGuard{OrchestratorID: "main", PrivateWorkspace: root},
		Runner:           runner,
	}, root
}

func echoWorkflow() *Definition {
	return &Definition{
		ID: "echo",
		Steps: []StepDefinition{
			{ID: "step1", Kind: StepAgentTask, Agent: "writer", Prompt: "say hi", Outputs: []string{"summary"}},
		},
	}
}

func TestEngine_HappyPathSingleStep(t *testing.T) {
	runner := func(ctx context.Context, inv provider.Invocation) (*provider.Result, error) {
		return &provider.Result{Message: `[workflow_result]{"status":"complete","summary":"ok","reply":"pong"}[/workflow_result]`}, nil
	}
	e, _ := newTestEngine(t, echoWorkflow(), runner)

	run, err := e.Start(context.Background(), "echo", StartInput{Inputs: map[string]any{"x": 1}})
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, run.State)

	attemptDir := e.Store.AttemptDir(run.RunID, "step1", 1)
	assert.FileExists(t, attemptDir+"/prompt.md")
	assert.FileExists(t, attemptDir+"/context.md")
}

func reviewWorkflow() *Definition {
	return &Definition{
		ID: "review-loop",
		Steps: []StepDefinition{
			{ID: "plan", Kind: StepAgentTask, Agent: "writer", Prompt: "plan it", Next: "review"},
			{
				ID: "review", Kind: StepAgentReview, Agent: "writer", Prompt: "review it",
				OnApprove: "", OnReject: "plan",
				Limits: Limits{MaxRetries: 1},
			},
		},
	}
}

func TestEngine_ReviewLoop_RejectThenApprove(t *testing.T) {
	calls := 0
	runner := func(ctx context.Context, inv provider.Invocation) (*provider.Result, error) {
		calls++
		switch {
		case calls == 1:
			return &provider.Result{Message: `[workflow_result]{"status":"complete"}[/workflow_result]`}, nil // plan #1
		case calls == 2:
			return &provider.Result{Message: `[workflow_result]{"status":"complete","decision":"reject"}[/workflow_result]`}, nil // review #1
		case calls == 3:
			return &provider.Result{Message: `[workflow_result]{"status":"complete"}[/workflow_result]`}, nil // plan #2
		default:
			return &provider.Result{Message: `[workflow_result]{"status":"complete","decision":"approve"}[/workflow_result]`}, nil // review #2
		}
	}
	e, _ := newTestEngine(t, reviewWorkflow(), runner)

	run, err := e.Start(context.Background(), "review-loop", StartInput{})
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, run.State)
	assert.Equal(t, 4, calls)
}

func TestEngine_ReviewLoop_InvalidDecisionExceedsRetriesFails(t *testing.T) {
	calls := 0
	runner := func(ctx context.Context, inv provider.Invocation) (*provider.Result, error) {
		calls++
		if calls == 1 {
			return &provider.Result{Message: `[workflow_result]{"status":"complete"}[/workflow_result]`}, nil // plan
		}
		return &provider.Result{Message: `[workflow_result]{"status":"complete"}[/workflow_result]`}, nil // review, no decision field
	}
	def := reviewWorkflow()
	def.Steps[1].Limits.MaxRetries = 0
	e, _ := newTestEngine(t, def, runner)

	run, err := e.Start(context.Background(), "review-loop", StartInput{})
	require.NoError(t, err)
	assert.Equal(t, RunFailed, run.State)
	assert.Equal(t, "envelope_missing", run.TerminalReason)
}

func TestEngine_ProviderTimeoutRetriesThenFails(t *testing.T) {
	calls := 0
	runner := func(ctx context.Context, inv provider.Invocation) (*provider.Result, error) {
		calls++
		return nil, &direrrors.ProviderError{Provider: "anthropic", Kind: direrrors.ProviderErrorTimeout}
	}
	def := echoWorkflow()
	def.Steps[0].Limits.MaxRetries = 2
	e, _ := newTestEngine(t, def, runner)

	run, err := e.Start(context.Background(), "echo", StartInput{})
	require.NoError(t, err)
	assert.Equal(t, RunFailed, run.State)
	assert.Equal(t, "step_timeout", run.TerminalReason)
	assert.Equal(t, 3, calls) // initial + 2 retries
}

func TestEngine_UnsafeOutputTemplateFailsBeforeSpawn(t *testing.T) {
	calls := 0
	runner := func(ctx context.Context, inv provider.Invocation) (*provider.Result, error) {
		calls++
		return &provider.Result{Message: `[workflow_result]{"status":"complete"}[/workflow_result]`}, nil
	}
	def := echoWorkflow()
	def.Steps[0].OutputFiles = map[string]string{"plan": "../escape.md"}
	e, _ := newTestEngine(t, def, runner)

	run, err := e.Start(context.Background(), "echo", StartInput{})
	require.NoError(t, err)
	assert.Equal(t, RunFailed, run.State)
	assert.Equal(t, 0, calls)
}

func TestEngine_ResumeTerminalRunIsNoop(t *testing.T) {
	runner := func(ctx context.Context, inv provider.Invocation) (*provider.Result, error) {
		return &provider.Result{Message: `[workflow_result]{"status":"complete"}[/workflow_result]`}, nil
	}
	e, _ := newTestEngine(t, echoWorkflow(), runner)
	run, err := e.Start(context.Background(), "echo", StartInput{})
	require.NoError(t, err)
	require.Equal(t, RunSucceeded, run.State)

	resumed, err := e.Resume(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, resumed.State)
}

func TestEngine_UnknownWorkflowFails(t *testing.T) {
	e, _ := newTestEngine(t, echoWorkflow(), nil)
	_, err := e.Start(context.Background(), "nonexistent", StartInput{})
	require.Error(t, err)
}

type recordingRunObserver struct {
	runs     []string
	attempts []string
}

func (r *recordingRunObserver) ObserveRunCompleted(workflow, state string, _ float64) {
	r.runs = append(r.runs, workflow+":"+state)
}

func (r *recordingRunObserver) ObserveStepAttempt(workflow, step, kind, outcome string, _ float64) {
	r.attempts = append(r.attempts, workflow+":"+step+":"+kind+":"+outcome)
}

func TestEngine_ReportsRunAndStepMetrics(t *testing.T) {
	runner := func(ctx context.Context, inv provider.Invocation) (*provider.Result, error) {
		return &provider.Result{Message: `[workflow_result]{"status":"complete","summary":"ok","reply":"pong"}[/workflow_result]`}, nil
	}
	e, _ := newTestEngine(t, echoWorkflow(), runner)
	obs := &recordingRunObserver{}
	e.Metrics = obs

	run, err := e.Start(context.Background(), "echo", StartInput{})
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, run.State)

	assert.Equal(t, []string{"echo:step1:writer:complete"}, obs.attempts)
	assert.Equal(t, []string{"echo:succeeded"}, obs.runs)
}

