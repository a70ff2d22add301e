package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/direclaw/direclaw/internal/config"
	"github.com/direclaw/direclaw/internal/fsutil"
	"github.com/direclaw/direclaw/internal/provider"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// RunnerFunc invokes a provider CLI for one attempt. Matches
// provider.Run's signature; overridable in tests.
type RunnerFunc func(ctx context.Context, inv provider.Invocation) (*provider.Result, error)

// RunObserver receives run- and step-level outcomes for a metrics sink to
// publish. Satisfied structurally by *internal/telemetry.Metrics without
// this package importing it.
type RunObserver interface {
	ObserveRunCompleted(workflow, state string, durationSeconds float64)
	ObserveStepAttempt(workflow, step, kind, outcome string, durationSeconds float64)
}

type noopRunObserver struct{}

func (noopRunObserver) ObserveRunCompleted(string, string, float64)        {}
func (noopRunObserver) ObserveStepAttempt(string, string, string, string, float64) {}

// StartInput describes the inbound context a new run is created from.
type StartInput struct {
	Inputs               map[string]any
	SourceMessageID      string
	SelectorID           string
	SelectedWorkflow     string
	StatusConversationID string
	Channel              string
	ChannelProfileID     string
	ConversationID       string
	SenderID             string
}

// Engine drives one orchestrator's workflow graphs through the attempt
// lifecycle of spec §4.5. Grounded on the teacher's
// internal/controller/runner package's attempt/state-machine shape
// (lifecycle.go's start/advance/terminal split, state_manager.go's
// mutex-guarded record updates), generalized from the teacher's
// general-purpose step executor into the fixed two-node-kind graph and
// output-file contract this spec defines.
type Engine struct {
	OrchestratorID   string
	PrivateWorkspace string
	Workflows        map[string]*Definition
	Agents           map[string]config.AgentDef
	Store            *RunStore
	Guard            *WorkspaceGuard
	Orchestration    Orchestration
	Runner           RunnerFunc
	Now              func() time.Time
	Metrics          RunObserver
}

func (e *Engine) metrics() RunObserver {
	if e.Metrics != nil {
		return e.Metrics
	}
	return noopRunObserver{}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) runner() RunnerFunc {
	if e.Runner != nil {
		return e.Runner
	}
	return provider.Run
}

// Start creates a new RunRecord for workflowID and advances it until a
// terminal or waiting state.
func (e *Engine) Start(ctx context.Context, workflowID string, in StartInput) (*RunRecord, error) {
	def, ok := e.Workflows[workflowID]
	if !ok {
		return nil, &direrrors.UnknownWorkflowError{WorkflowID: workflowID}
	}
	def.Index()

	runID, err := fsutil.NewRunID(e.now())
	if err != nil {
		return nil, err
	}

	now := e.now()
	run := &RunRecord{
		RunID:                runID,
		WorkflowID:           workflowID,
		OrchestratorID:       e.OrchestratorID,
		State:                RunRunning,
		CurrentStepID:        def.FirstStep(),
		CurrentAttempt:       0,
		Inputs:               in.Inputs,
		SourceMessageID:      in.SourceMessageID,
		SelectorID:           in.SelectorID,
		SelectedWorkflow:     in.SelectedWorkflow,
		StatusConversationID: in.StatusConversationID,
		StartedAt:            now,
		UpdatedAt:            now,
	}
	if err := e.Store.SaveRun(run); err != nil {
		return nil, err
	}
	if err := e.saveProgress(run, "starting", false, "run "+runID); err != nil {
		return nil, err
	}

	return e.advance(ctx, run, def, in)
}

// Resume reloads a RunRecord and continues it from currentStepId/
// currentAttempt. Resuming a terminal run is a no-op (spec §4.5 Resume
// semantics).
func (e *Engine) Resume(ctx context.Context, runID string) (*RunRecord, error) {
	run, err := e.Store.LoadRun(runID)
	if err != nil {
		return nil, err
	}
	if run.State.Terminal() {
		return run, nil
	}
	def, ok := e.Workflows[run.WorkflowID]
	if !ok {
		return nil, &direrrors.UnknownWorkflowError{WorkflowID: run.WorkflowID}
	}
	def.Index()
	return e.advance(ctx, run, def, StartInput{
		ChannelProfileID:     "",
		StatusConversationID: run.StatusConversationID,
	})
}

// Cancel marks run canceled-pending; the engine observes the flag at the
// next attempt boundary (spec §5).
func (e *Engine) Cancel(runID string) error {
	run, err := e.Store.LoadRun(runID)
	if err != nil {
		return err
	}
	if run.State.Terminal() {
		return nil
	}
	run.CancelRequested = true
	return e.Store.SaveRun(run)
}

func (e *Engine) advance(ctx context.Context, run *RunRecord, def *Definition, in StartInput) (*RunRecord, error) {
	runTimeout := e.Orchestration.DefaultRunTimeoutSeconds

	for {
		if run.CancelRequested {
			return e.terminate(run, RunCanceled, "canceled")
		}
		if runTimeout > 0 && e.now().Sub(run.StartedAt) > time.Duration(runTimeout)*time.Second {
			return e.terminate(run, RunFailed, "run_timeout")
		}
		if e.Orchestration.MaxTotalIterations > 0 && run.TotalIterations >= e.Orchestration.MaxTotalIterations {
			return e.terminate(run, RunFailed, "max_total_iterations")
		}

		step, ok := def.Step(run.CurrentStepID)
		if !ok {
			return e.terminate(run, RunFailed, "unknown_step")
		}

		outcome, err := e.runAttempt(ctx, run, def, step, in)
		run.TotalIterations++

		if err != nil {
			if !direrrors.Retryable(err) {
				return e.terminate(run, RunFailed, direrrors.TerminalReason(err))
			}
			run.CurrentAttempt++
			maxRetries := step.Limits.MaxRetries
			if run.CurrentAttempt > maxRetries {
				return e.terminate(run, RunFailed, direrrors.TerminalReason(err))
			}
			run.UpdatedAt = e.now()
			if err := e.Store.SaveRun(run); err != nil {
				return nil, err
			}
			continue
		}

		run.CurrentAttempt = 0
		if outcome.env.Reply != "" {
			run.LastReply = outcome.env.Reply
		}
		next, terminalState, terminalReason, waiting := e.resolveTransition(def, step, outcome)
		run.UpdatedAt = e.now()

		if terminalState != "" {
			return e.terminate(run, terminalState, terminalReason)
		}
		if waiting {
			run.State = RunWaiting
			run.CurrentStepID = next
			if err := e.Store.SaveRun(run); err != nil {
				return nil, err
			}
			if err := e.saveProgress(run, outcome.env.Summary, true, "awaiting "+next); err != nil {
				return nil, err
			}
			return run, nil
		}

		run.CurrentStepID = next
		if err := e.Store.SaveRun(run); err != nil {
			return nil, err
		}
		if err := e.saveProgress(run, outcome.env.Summary, false, "advancing to "+next); err != nil {
			return nil, err
		}
	}
}

func (e *Engine) terminate(run *RunRecord, state RunState, reason string) (*RunRecord, error) {
	run.State = state
	run.TerminalReason = reason
	run.UpdatedAt = e.now()
	if err := e.Store.SaveRun(run); err != nil {
		return nil, err
	}
	_ = e.saveProgress(run, reason, false, "")
	e.metrics().ObserveRunCompleted(run.WorkflowID, string(state), run.UpdatedAt.Sub(run.StartedAt).Seconds())
	return run, nil
}

func (e *Engine) saveProgress(run *RunRecord, summary string, pendingHumanInput bool, nextAction string) error {
	now := e.now()
	return e.Store.SaveProgress(&ProgressSnapshot{
		RunID:              run.RunID,
		WorkflowID:         run.WorkflowID,
		State:              run.State,
		CurrentStepID:      run.CurrentStepID,
		CurrentAttempt:     run.CurrentAttempt,
		StartedAt:          run.StartedAt,
		UpdatedAt:          now,
		LastProgressAt:     now,
		Summary:            summary,
		PendingHumanInput:  pendingHumanInput,
		NextExpectedAction: nextAction,
	})
}

type attemptOutcome struct {
	env *Envelope
}

// runAttempt executes the nine-step attempt lifecycle of spec §4.5 for
// one step, one attempt.
func (e *Engine) runAttempt(ctx context.Context, run *RunRecord, def *Definition, step StepDefinition, in StartInput) (*attemptOutcome, error) {
	attempt := run.CurrentAttempt + 1

	mode := step.WorkspaceMode
	if mode == "" {
		mode = WorkspaceOrchestrator
	}
	if mode == WorkspaceAgent {
		return nil, &direrrors.ConfigInvalidError{Key: "steps." + step.ID + ".workspace_mode", Reason: "agent_workspace is not a valid workspace mode"}
	}

	cwd := e.PrivateWorkspace
	if mode == WorkspaceRun {
		cwd = filepath.Join(e.PrivateWorkspace, "work", "runs", run.RunID)
	}

	if err := e.Guard.Check(cwd); err != nil {
		return nil, err
	}

	attemptRoot := e.Store.AttemptDir(run.RunID, step.ID, attempt)

	timeoutSeconds := step.Limits.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = e.Orchestration.DefaultStepTimeoutSeconds
	}
	if max := e.Orchestration.MaxStepTimeoutSeconds; max > 0 && timeoutSeconds > max {
		timeoutSeconds = max
	}

	outputPaths := make(map[string]string, len(step.OutputFiles))
	for key, tmpl := range step.OutputFiles {
		path, err := ResolveOutputPath(attemptRoot, key, tmpl, run.RunID, step.ID, attempt)
		if err != nil {
			return nil, err
		}
		outputPaths[key] = path
	}

	rc := &RenderContext{
		Inputs:           run.Inputs,
		StepOutputs:      map[string]map[string]any{},
		State:            map[string]any{},
		RunID:            run.RunID,
		StepID:           step.ID,
		Attempt:          attempt,
		RunWorkspace:     cwd,
		OutputPaths:      outputPaths,
		ChannelProfileID: in.ChannelProfileID,
		ConversationID:   in.ConversationID,
		SenderID:         in.SenderID,
		SelectorID:       in.SelectorID,
		Channel:          in.Channel,
	}

	promptText, _, err := rc.Render(step.Prompt)
	if err != nil {
		return nil, fmt.Errorf("workflow: render prompt for step %s: %w", step.ID, err)
	}
	contextJSON, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("workflow: marshal context for step %s: %w", step.ID, err)
	}

	promptPath := filepath.Join(attemptRoot, "prompt.md")
	contextPath := filepath.Join(attemptRoot, "context.md")
	if err := fsutil.WriteAtomic(promptPath, []byte(promptText), 0o600); err != nil {
		return nil, fmt.Errorf("workflow: write prompt.md: %w", err)
	}
	if err := fsutil.WriteAtomic(contextPath, contextJSON, 0o600); err != nil {
		return nil, fmt.Errorf("workflow: write context.md: %w", err)
	}

	agent, ok := e.Agents[step.Agent]
	if !ok {
		return nil, &direrrors.ConfigInvalidError{Key: "steps." + step.ID + ".agent", Reason: "unknown agent " + step.Agent}
	}

	meta := &AttemptMeta{RunID: run.RunID, StepID: step.ID, Attempt: attempt, Agent: step.Agent, StartedAt: e.now()}

	result, runErr := e.runner()(ctx, provider.Invocation{
		Provider:       provider.Provider(agent.Provider),
		Model:          agent.Model,
		PromptPath:     promptPath,
		ContextPath:    contextPath,
		Cwd:            cwd,
		TimeoutSeconds: timeoutSeconds,
		ResetFlagPath:  config.AgentResetFlagPath(e.PrivateWorkspace, step.Agent),
	})
	meta.FinishedAt = e.now()

	if runErr != nil {
		meta.ExitStatus = "failed"
		meta.Reason = runErr.Error()
		_ = e.Store.SaveAttemptMeta(meta)
		e.observeAttempt(run.WorkflowID, meta)
		return nil, runErr
	}

	env, raw, err := ParseEnvelope(run.RunID, step.ID, attempt, result.Message, step.Outputs)
	if err != nil {
		meta.ExitStatus = "failed"
		meta.Reason = err.Error()
		_ = e.Store.SaveAttemptMeta(meta)
		e.observeAttempt(run.WorkflowID, meta)
		return nil, err
	}

	if err := materializeOutputs(run.RunID, step.ID, attempt, outputPaths, raw); err != nil {
		meta.ExitStatus = "failed"
		meta.Reason = err.Error()
		_ = e.Store.SaveAttemptMeta(meta)
		e.observeAttempt(run.WorkflowID, meta)
		return nil, err
	}

	if step.Kind == StepAgentReview && env.Decision != "approve" && env.Decision != "reject" {
		reviewErr := &direrrors.EnvelopeInvalidError{RunID: run.RunID, StepID: step.ID, Attempt: attempt, Reason: "decision must be approve or reject"}
		meta.ExitStatus = "failed"
		meta.Reason = reviewErr.Error()
		_ = e.Store.SaveAttemptMeta(meta)
		e.observeAttempt(run.WorkflowID, meta)
		return nil, reviewErr
	}

	meta.ExitStatus = env.Status
	meta.Decision = env.Decision
	_ = e.Store.SaveAttemptMeta(meta)
	e.observeAttempt(run.WorkflowID, meta)

	return &attemptOutcome{env: env}, nil
}

// observeAttempt reports one finished attempt's duration and outcome to
// the engine's metrics sink. step.Kind isn't available here since meta
// only carries the step id, so the kind label carries the step's agent
// name; the step label is the step id and the outcome is the attempt's
// exit status.
func (e *Engine) observeAttempt(workflowID string, meta *AttemptMeta) {
	e.metrics().ObserveStepAttempt(workflowID, meta.StepID, meta.Agent, meta.ExitStatus, meta.FinishedAt.Sub(meta.StartedAt).Seconds())
}
