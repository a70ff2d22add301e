// Package workflow drives a workflow graph from queued to a terminal state
// under bounded retries, timeouts, and an iteration ceiling, and persists
// RunRecord/ProgressSnapshot at their canonical paths. Grounded on the
// teacher's pkg/workflow package: the same typed-context/typed-output
// shape (types.go), the same template-token rendering idiom
// (template.go), generalized from the teacher's general-purpose DAG
// executor into DireClaw's fixed two-node-kind graph (agent_task,
// agent_review) with the attempt/output-file contract spec §4.5 defines.
package workflow

import "time"

// RunState is the lifecycle state of a workflow run.
type RunState string

const (
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunWaiting   RunState = "waiting"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
	RunCanceled  RunState = "canceled"
)

func (s RunState) Terminal() bool {
	switch s {
	case RunSucceeded, RunFailed, RunCanceled:
		return true
	default:
		return false
	}
}

// WorkspaceMode selects the attempt's working directory.
type WorkspaceMode string

const (
	// WorkspaceOrchestrator: CWD is the orchestrator's private workspace. Default.
	WorkspaceOrchestrator WorkspaceMode = "orchestrator_workspace"
	// WorkspaceRun: CWD is <private_workspace>/work/runs/<runId>.
	WorkspaceRun WorkspaceMode = "run_workspace"
	// WorkspaceAgent is named in config but must fail validation, §4.5 step 1.
	WorkspaceAgent WorkspaceMode = "agent_workspace"
)

// StepKind is the graph node type.
type StepKind string

const (
	StepAgentTask   StepKind = "agent_task"
	StepAgentReview StepKind = "agent_review"
)

// Limits bounds a single step's execution, before workflow-level defaults apply.
type Limits struct {
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" json:"timeoutSeconds,omitempty"`
	MaxRetries     int `yaml:"max_retries,omitempty" json:"maxRetries,omitempty"`
}

// StepDefinition is one node in a workflow graph.
type StepDefinition struct {
	ID            string            `yaml:"id" json:"id"`
	Kind          StepKind          `yaml:"type" json:"type"`
	Agent         string            `yaml:"agent" json:"agent"`
	Prompt        string            `yaml:"prompt" json:"prompt"`
	Next          string            `yaml:"next,omitempty" json:"next,omitempty"`
	OnApprove     string            `yaml:"on_approve,omitempty" json:"onApprove,omitempty"`
	OnReject      string            `yaml:"on_reject,omitempty" json:"onReject,omitempty"`
	WorkspaceMode WorkspaceMode     `yaml:"workspace_mode,omitempty" json:"workspaceMode,omitempty"`
	OutputFiles   map[string]string `yaml:"output_files,omitempty" json:"outputFiles,omitempty"`
	Outputs       []string          `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Limits        Limits            `yaml:"limits,omitempty" json:"limits,omitempty"`
}

// OptionalOutput reports whether an outputs entry (e.g. "summary?") is
// declared optional and returns its bare key.
func OptionalOutput(key string) (bare string, optional bool) {
	if n := len(key); n > 0 && key[n-1] == '?' {
		return key[:n-1], true
	}
	return key, false
}

// Orchestration carries workflow_orchestration-level run/step limits,
// mirroring config.WorkflowOrchestrationLimits field for field, with JSON
// tags in place of YAML ones. The workflow package does import config
// elsewhere (engine.go uses config.AgentDef and AgentResetFlagPath).
type Orchestration struct {
	DefaultRunTimeoutSeconds  int `json:"defaultRunTimeoutSeconds,omitempty"`
	DefaultStepTimeoutSeconds int `json:"defaultStepTimeoutSeconds,omitempty"`
	MaxStepTimeoutSeconds     int `json:"maxStepTimeoutSeconds,omitempty"`
	MaxTotalIterations        int `json:"maxTotalIterations,omitempty"`
}

// Definition is a workflow graph: its steps in registration order plus
// orchestration-level limits.
type Definition struct {
	ID            string           `yaml:"id" json:"id"`
	Steps         []StepDefinition `yaml:"steps" json:"steps"`
	Orchestration Orchestration    `yaml:"-" json:"-"`
	stepIndex     map[string]int
}

// Index builds the stepId -> position lookup and the lexical-next-step
// fallback used when a step has no explicit `next`.
func (d *Definition) Index() {
	d.stepIndex = make(map[string]int, len(d.Steps))
	for i, s := range d.Steps {
		d.stepIndex[s.ID] = i
	}
}

// Step returns the step definition for id, or false if unknown.
func (d *Definition) Step(id string) (StepDefinition, bool) {
	if d.stepIndex == nil {
		d.Index()
	}
	i, ok := d.stepIndex[id]
	if !ok {
		return StepDefinition{}, false
	}
	return d.Steps[i], true
}

// LexicalNext returns the step id immediately following id in definition
// order, or "" if id is the last step.
func (d *Definition) LexicalNext(id string) string {
	if d.stepIndex == nil {
		d.Index()
	}
	i, ok := d.stepIndex[id]
	if !ok || i+1 >= len(d.Steps) {
		return ""
	}
	return d.Steps[i+1].ID
}

// FirstStep returns the entry step id.
func (d *Definition) FirstStep() string {
	if len(d.Steps) == 0 {
		return ""
	}
	return d.Steps[0].ID
}

// RunRecord is the durable record of one workflow run, persisted at
// <orchestrator_runtime_root>/workflows/runs/<runId>.json.
type RunRecord struct {
	RunID                string         `json:"runId"`
	WorkflowID           string         `json:"workflowId"`
	OrchestratorID       string         `json:"orchestratorId"`
	State                RunState       `json:"state"`
	CurrentStepID        string         `json:"currentStepId,omitempty"`
	CurrentAttempt       int            `json:"currentAttempt,omitempty"`
	TotalIterations      int            `json:"totalIterations"`
	Inputs               map[string]any `json:"inputs,omitempty"`
	SourceMessageID      string         `json:"sourceMessageId,omitempty"`
	SelectorID           string         `json:"selectorId,omitempty"`
	SelectedWorkflow     string         `json:"selectedWorkflow,omitempty"`
	StatusConversationID string         `json:"statusConversationId,omitempty"`
	StartedAt            time.Time      `json:"startedAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
	TerminalReason       string         `json:"terminalReason,omitempty"`
	CancelRequested      bool           `json:"cancelRequested,omitempty"`
	LastReply            string         `json:"lastReply,omitempty"`
}

// ProgressSnapshot is the read-optimized projection of a run's progress,
// persisted at .../workflows/runs/<runId>/progress.json.
type ProgressSnapshot struct {
	RunID              string    `json:"runId"`
	WorkflowID         string    `json:"workflowId"`
	State              RunState  `json:"state"`
	CurrentStepID      string    `json:"currentStepId,omitempty"`
	CurrentAttempt     int       `json:"currentAttempt,omitempty"`
	StartedAt          time.Time `json:"startedAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	LastProgressAt     time.Time `json:"lastProgressAt"`
	Summary            string    `json:"summary,omitempty"`
	PendingHumanInput  bool      `json:"pendingHumanInput"`
	NextExpectedAction string    `json:"nextExpectedAction,omitempty"`
}

// AttemptMeta is persisted as attempt.json alongside prompt.md/context.md
// at .../runs/<runId>/steps/<stepId>/attempts/<n>/.
type AttemptMeta struct {
	RunID      string    `json:"runId"`
	StepID     string    `json:"stepId"`
	Attempt    int       `json:"attempt"`
	Agent      string    `json:"agent"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	ExitStatus string    `json:"exitStatus,omitempty"` // "complete" | "blocked" | "failed"
	Decision   string    `json:"decision,omitempty"`   // agent_review only
	Reason     string    `json:"reason,omitempty"`     // failure reason, if any
}

// Envelope is the parsed [workflow_result]{...}[/workflow_result] payload.
type Envelope struct {
	Status   string         `json:"status"` // complete | blocked | failed
	Summary  string         `json:"summary,omitempty"`
	Reply    string         `json:"reply,omitempty"`
	Decision string         `json:"decision,omitempty"`
	Outputs  map[string]any `json:"-"` // remaining keys, collected separately
}
