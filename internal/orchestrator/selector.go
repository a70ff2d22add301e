package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/direclaw/direclaw/internal/config"
	"github.com/direclaw/direclaw/internal/fsutil"
	"github.com/direclaw/direclaw/internal/provider"
	"github.com/google/uuid"
)

// Selector invokes the selector agent for one orchestrator and parses its
// routing decision, per spec §4.4 step 3. Grounded on
// internal/workflow.Engine's attempt shape (render two flat files, spawn
// the provider runner, parse its output) narrowed to a single-shot
// invocation with no step graph, retry loop, or output-file contract,
// a selector round-trip is one provider call produced directly as JSON,
// not a `[workflow_result]` envelope.
type Selector struct {
	OrchestratorID   string
	PrivateWorkspace string
	SelectorAgentID  string
	SelectorAgent    config.AgentDef
	Store            *SelectStore
	Runner           provider.RunnerFunc
	Now              func() time.Time
}

func (s *Selector) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Selector) runner() provider.RunnerFunc {
	if s.Runner != nil {
		return s.Runner
	}
	return provider.Run
}

// NewSelectorID returns a fresh, random selector correlation id.
func NewSelectorID() string {
	return "sel-" + uuid.NewString()
}

// Invoke persists req, claims it, renders a prompt describing the routing
// decision to make, spawns the selector agent, parses and validates its
// JSON result, and persists the result. The provider's raw JSON output
// (not a `[workflow_result]` envelope, the selector is not a workflow
// step) must decode directly into a SelectorResult.
func (s *Selector) Invoke(ctx context.Context, req *SelectorRequest) (*SelectorResult, error) {
	if err := s.Store.SaveIncoming(req); err != nil {
		return nil, err
	}
	if err := s.Store.ClaimProcessing(req.SelectorID); err != nil {
		return nil, err
	}
	s.Store.AppendLog(req.SelectorID, "claimed")

	dir := filepath.Join(s.PrivateWorkspace, "orchestrator", "select", "processing", req.SelectorID+"_attempt")
	promptPath := filepath.Join(dir, "prompt.md")
	contextPath := filepath.Join(dir, "context.md")

	contextJSON, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: marshal selector context: %w", err)
	}
	if err := fsutil.WriteAtomic(contextPath, contextJSON, 0o600); err != nil {
		return nil, fmt.Errorf("orchestrator: write selector context: %w", err)
	}
	if err := fsutil.WriteAtomic(promptPath, []byte(renderSelectorPrompt(req)), 0o600); err != nil {
		return nil, fmt.Errorf("orchestrator: write selector prompt: %w", err)
	}

	result, runErr := s.runner()(ctx, provider.Invocation{
		Provider:      provider.Provider(s.SelectorAgent.Provider),
		Model:         s.SelectorAgent.Model,
		PromptPath:    promptPath,
		ContextPath:   contextPath,
		Cwd:           s.PrivateWorkspace,
		ResetFlagPath: config.AgentResetFlagPath(s.PrivateWorkspace, s.SelectorAgentID),
	})
	if runErr != nil {
		s.Store.AppendLog(req.SelectorID, "provider_failed")
		res := &SelectorResult{SelectorID: req.SelectorID, Status: SelectorFailed, Reason: clampReason(runErr.Error())}
		_ = s.Store.SaveResult(res)
		return res, nil
	}

	res, parseErr := parseSelectorResult(req.SelectorID, result.Message)
	if parseErr != nil {
		s.Store.AppendLog(req.SelectorID, "parse_failed")
		res = &SelectorResult{SelectorID: req.SelectorID, Status: SelectorFailed, Reason: clampReason(parseErr.Error())}
	} else {
		s.Store.AppendLog(req.SelectorID, "selected")
	}

	if err := s.Store.SaveResult(res); err != nil {
		return nil, err
	}
	return res, nil
}

func renderSelectorPrompt(req *SelectorRequest) string {
	var b strings.Builder
	b.WriteString("You are the routing selector for this orchestrator.\n")
	fmt.Fprintf(&b, "User message: %s\n", req.UserMessage)
	fmt.Fprintf(&b, "Available workflows: %s\n", strings.Join(req.AvailableWorkflows, ", "))
	fmt.Fprintf(&b, "Default workflow: %s\n", req.DefaultWorkflow)
	fmt.Fprintf(&b, "Available functions: %s\n", strings.Join(req.AvailableFunctions, ", "))
	b.WriteString("Respond with exactly one JSON object (no surrounding text) matching:\n")
	b.WriteString(`{"selectorId":"...","status":"selected|failed","action":"workflow_start|workflow_status|diagnostics_investigate|command_invoke|no_response","selectedWorkflow":"...","functionId":"...","functionArgs":{},"diagnosticsScope":"...","reason":"..."}`)
	b.WriteString("\n")
	return b.String()
}

// parseSelectorResult decodes and validates the selector agent's raw JSON
// response per spec §3's SelectorResult shape.
func parseSelectorResult(selectorID, message string) (*SelectorResult, error) {
	trimmed := strings.TrimSpace(message)
	var res SelectorResult
	if err := json.Unmarshal([]byte(trimmed), &res); err != nil {
		return nil, fmt.Errorf("selector result is not valid JSON: %w", err)
	}
	res.SelectorID = selectorID
	res.Reason = clampReason(res.Reason)

	switch res.Status {
	case SelectorSelected, SelectorFailed:
	default:
		return nil, fmt.Errorf("selector result status must be selected or failed, got %q", res.Status)
	}
	if res.Status == SelectorFailed {
		return &res, nil
	}

	switch res.Action {
	case ActionWorkflowStart, ActionWorkflowStatus, ActionDiagnosticsInvestigate, ActionCommandInvoke, ActionNoResponse:
	default:
		return nil, fmt.Errorf("selector result action %q is not recognized", res.Action)
	}
	return &res, nil
}
