package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/direclaw/direclaw/internal/config"
	"github.com/direclaw/direclaw/internal/fsutil"
	"github.com/direclaw/direclaw/internal/jq"
	"github.com/direclaw/direclaw/internal/provider"
	"github.com/direclaw/direclaw/internal/workflow"
	"github.com/google/uuid"
)

// DiagnosticsContext is the bounded, jq-queryable slice of run history a
// diagnostics_investigate action gathers before asking the diagnostics
// agent for a finding, per spec §4.4 step 4's "scope resolver, context
// gathering, provider inference, persisted audit" bullet.
type DiagnosticsContext struct {
	Scope string        `json:"scope"`
	Runs  []RunSnapshot `json:"runs"`
}

// RunSnapshot is the subset of a RunRecord/ProgressSnapshot pair relevant
// to a diagnostics query; gathered read-only, never used to drive a
// transition (same observer rule workflow.RunStore.LoadProgress documents).
type RunSnapshot struct {
	RunID          string    `json:"runId"`
	WorkflowID     string    `json:"workflowId"`
	State          string    `json:"state"`
	CurrentStepID  string    `json:"currentStepId,omitempty"`
	TerminalReason string    `json:"terminalReason,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DiagnosticsResult is the persisted outcome of one investigation, under
// <orchestrator_runtime_root>/orchestrator/diagnostics/results/<id>.json.
type DiagnosticsResult struct {
	DiagnosticsID string    `json:"diagnosticsId"`
	Scope         string    `json:"scope"`
	Query         any       `json:"query,omitempty"`
	Finding       string    `json:"finding"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// Investigator runs the diagnostics_investigate flow: it resolves a scope
// string into a bounded set of run snapshots, optionally narrows them with
// a jq expression, then asks a dedicated diagnostics agent to turn the
// gathered context into a short finding. Grounded on internal/jq.Executor
// (the teacher's jq-in-workflow transform step, here repurposed as the
// narrowing tool over gathered diagnostic context instead of a step
// output) and on Selector's single-shot provider-invocation shape for the
// "provider inference" half.
type Investigator struct {
	OrchestratorID   string
	PrivateWorkspace string
	DiagnosticsAgent config.AgentDef
	RunStore         *workflow.RunStore
	JQ               *jq.Executor
	Runner           provider.RunnerFunc
	Now              func() time.Time

	runIndex func() []string // lists known run ids; set by caller (no directory listing owned here)
}

// SetRunIndex installs the function Investigator uses to discover known
// run ids for scope resolution. The workflow package owns run storage
// layout; Investigator only reads records it's told about.
func (inv *Investigator) SetRunIndex(fn func() []string) {
	inv.runIndex = fn
}

func (inv *Investigator) now() time.Time {
	if inv.Now != nil {
		return inv.Now()
	}
	return time.Now()
}

func (inv *Investigator) runner() provider.RunnerFunc {
	if inv.Runner != nil {
		return inv.Runner
	}
	return provider.Run
}

// NewDiagnosticsID returns a fresh correlation id for one investigation.
func NewDiagnosticsID() string {
	return "diag-" + uuid.NewString()
}

// resolveScope interprets a diagnosticsScope string: either a bare run id
// (gather that one run), or a jq filter expression applied over every
// known run's snapshot (gather every run the filter selects). An empty
// scope gathers every known run, most-recently-updated first.
func (inv *Investigator) resolveScope(ctx context.Context, scope string) ([]RunSnapshot, error) {
	var ids []string
	if inv.runIndex != nil {
		ids = inv.runIndex()
	}

	snapshots := make([]RunSnapshot, 0, len(ids))
	for _, id := range ids {
		run, err := inv.RunStore.LoadRun(id)
		if err != nil {
			continue
		}
		snap := RunSnapshot{
			RunID:          run.RunID,
			WorkflowID:     run.WorkflowID,
			State:          string(run.State),
			CurrentStepID:  run.CurrentStepID,
			TerminalReason: run.TerminalReason,
			UpdatedAt:      run.UpdatedAt,
		}
		if progress, err := inv.RunStore.LoadProgress(id); err == nil {
			snap.Summary = progress.Summary
		}
		snapshots = append(snapshots, snap)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].UpdatedAt.After(snapshots[j].UpdatedAt) })

	trimmed := strings.TrimSpace(scope)
	if trimmed == "" {
		return snapshots, nil
	}

	for _, snap := range snapshots {
		if snap.RunID == trimmed {
			return []RunSnapshot{snap}, nil
		}
	}

	filtered, err := inv.JQ.Execute(ctx, fmt.Sprintf("map(select(%s))", trimmed), snapshots)
	if err != nil {
		return snapshots, nil
	}
	return coerceSnapshots(filtered, snapshots), nil
}

// coerceSnapshots maps a jq result (decoded through interface{}) back onto
// the matching RunSnapshot values by runId, since gojq returns generic
// maps rather than typed structs.
func coerceSnapshots(filtered any, all []RunSnapshot) []RunSnapshot {
	items, ok := filtered.([]any)
	if !ok {
		return all
	}
	byID := make(map[string]RunSnapshot, len(all))
	for _, s := range all {
		byID[s.RunID] = s
	}
	out := make([]RunSnapshot, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		runID, _ := m["runId"].(string)
		if snap, ok := byID[runID]; ok {
			out = append(out, snap)
		}
	}
	return out
}

// Investigate runs the full diagnostics_investigate flow and returns a
// persisted DiagnosticsResult. No workflow run is advanced by this call,
// per spec §4.4's "no step advance" rule.
func (inv *Investigator) Investigate(ctx context.Context, scope string) (*DiagnosticsResult, error) {
	diagnosticsID := NewDiagnosticsID()

	snapshots, err := inv.resolveScope(ctx, scope)
	if err != nil {
		return nil, err
	}
	diagCtx := DiagnosticsContext{Scope: scope, Runs: snapshots}

	dir := filepath.Join(inv.PrivateWorkspace, "orchestrator", "diagnostics", diagnosticsID)
	promptPath := filepath.Join(dir, "prompt.md")
	contextPath := filepath.Join(dir, "context.json")

	contextJSON, err := json.MarshalIndent(diagCtx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: marshal diagnostics context: %w", err)
	}
	if err := fsutil.WriteAtomic(contextPath, contextJSON, 0o600); err != nil {
		return nil, fmt.Errorf("orchestrator: write diagnostics context: %w", err)
	}
	if err := fsutil.WriteAtomic(promptPath, []byte(renderDiagnosticsPrompt(scope, diagCtx)), 0o600); err != nil {
		return nil, fmt.Errorf("orchestrator: write diagnostics prompt: %w", err)
	}

	result, err := inv.runner()(ctx, provider.Invocation{
		Provider:    provider.Provider(inv.DiagnosticsAgent.Provider),
		Model:       inv.DiagnosticsAgent.Model,
		PromptPath:  promptPath,
		ContextPath: contextPath,
		Cwd:         inv.PrivateWorkspace,
	})

	finding := ""
	if err != nil {
		finding = fmt.Sprintf("diagnostics agent invocation failed: %v", err)
	} else {
		finding = strings.TrimSpace(result.Message)
	}

	res := &DiagnosticsResult{
		DiagnosticsID: diagnosticsID,
		Scope:         scope,
		Query:         diagCtx,
		Finding:       finding,
		GeneratedAt:   inv.now(),
	}

	resultPath := filepath.Join(inv.PrivateWorkspace, "orchestrator", "diagnostics", "results", diagnosticsID+".json")
	data, marshalErr := json.MarshalIndent(res, "", "  ")
	if marshalErr != nil {
		return nil, fmt.Errorf("orchestrator: marshal diagnostics result: %w", marshalErr)
	}
	if err := fsutil.WriteAtomic(resultPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("orchestrator: persist diagnostics result: %w", err)
	}

	return res, nil
}

func renderDiagnosticsPrompt(scope string, diagCtx DiagnosticsContext) string {
	var b strings.Builder
	b.WriteString("You are investigating an operational question about this orchestrator's workflow runs.\n")
	fmt.Fprintf(&b, "Scope: %s\n", scope)
	fmt.Fprintf(&b, "Runs in scope: %d\n", len(diagCtx.Runs))
	b.WriteString("Review context.json and respond with a short plain-text finding.\n")
	return b.String()
}
