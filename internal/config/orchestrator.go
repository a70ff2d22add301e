package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/direclaw/direclaw/internal/fsutil"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AgentDef configures one named agent an orchestrator can invoke as a
// selector or a workflow step's provider.
type AgentDef struct {
	Provider               string `yaml:"provider"` // "anthropic" | "openai"
	Model                  string `yaml:"model"`
	CanOrchestrateWorkflows bool  `yaml:"can_orchestrate_workflows,omitempty"`

	// Legacy is non-nil only if the YAML carried the pre-beta
	// private_workspace/shared_access fields on an agent; their mere
	// presence is a validation failure (spec §6).
	Legacy map[string]any `yaml:",inline"`
}

// WorkflowOrchestrationLimits configures step/run timeout and iteration
// ceilings, per spec §4.5's "Safety limits".
type WorkflowOrchestrationLimits struct {
	DefaultRunTimeoutSeconds  int `yaml:"default_run_timeout_seconds,omitempty"`
	DefaultStepTimeoutSeconds int `yaml:"default_step_timeout_seconds,omitempty"`
	MaxStepTimeoutSeconds     int `yaml:"max_step_timeout_seconds,omitempty"`
	MaxTotalIterations        int `yaml:"max_total_iterations,omitempty"`
}

// QueueConfig configures per-orchestrator queue behavior.
type QueueConfig struct {
	MaxConcurrency         int `yaml:"max_concurrency,omitempty"`          // QUEUE_MAX_CONCURRENCY, default 8
	QuarantineAfterRetries int `yaml:"quarantine_after_retries,omitempty"` // default 0; validated, but not read by the queue worker
}

// OrchestratorConfig is the per-orchestrator document (orchestrator.yaml).
type OrchestratorConfig struct {
	ID                    string                      `yaml:"id"`
	SelectorAgent         string                      `yaml:"selector_agent"`
	Workflows             []string                    `yaml:"workflows"`
	DefaultWorkflow       string                      `yaml:"default_workflow"`
	SelectionMaxRetries   int                         `yaml:"selection_max_retries"`
	Agents                map[string]AgentDef         `yaml:"agents"`
	WorkflowOrchestration WorkflowOrchestrationLimits `yaml:"workflow_orchestration,omitempty"`
	Queue                 QueueConfig                 `yaml:"queue,omitempty"`
}

// LoadOrchestrator reads and validates an orchestrator.yaml at path.
func LoadOrchestrator(path string) (*OrchestratorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &direrrors.ConfigInvalidError{Key: "orchestrator.yaml", Reason: "read failed", Cause: err}
	}

	oc := &OrchestratorConfig{}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(oc); err != nil {
		return nil, &direrrors.ConfigInvalidError{Key: "orchestrator.yaml", Reason: "parse failed", Cause: err}
	}

	oc.applyDefaults()

	if err := oc.Validate(); err != nil {
		return nil, err
	}
	return oc, nil
}

// Save atomically writes the orchestrator config back to path, mirroring
// Config.Save's re-validate-then-write-atomic discipline so the
// `orchestrator`/`orchestrator-agent` CLI verbs can never persist a
// document that would fail to load back.
func (oc *OrchestratorConfig) Save(path string) error {
	if err := oc.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(oc)
	if err != nil {
		return fmt.Errorf("config: marshal orchestrator.yaml: %w", err)
	}
	if err := fsutil.WriteAtomic(path, data, 0o600); err != nil {
		return &direrrors.ConfigInvalidError{Key: "orchestrator.yaml", Reason: "write failed", Cause: err}
	}
	return nil
}

func (oc *OrchestratorConfig) applyDefaults() {
	if oc.Queue.MaxConcurrency == 0 {
		oc.Queue.MaxConcurrency = 8
	}
	// QuarantineAfterRetries default of 0 is the zero value already. The
	// queue worker does not read it: a malformed payload is quarantined on
	// its first failed read, and a failing message is requeued up to the
	// worker's fixed bounds (1 deterministic, 10 transient) before quarantine.
}

// Validate checks the orchestrator config against spec §6's required shape.
func (oc *OrchestratorConfig) Validate() error {
	var errs []string

	if oc.ID == "" {
		errs = append(errs, "id is required")
	}
	if oc.SelectorAgent == "" {
		errs = append(errs, "selector_agent is required")
	} else if agent, ok := oc.Agents[oc.SelectorAgent]; !ok {
		errs = append(errs, fmt.Sprintf("selector_agent %q is not defined in agents", oc.SelectorAgent))
	} else if !agent.CanOrchestrateWorkflows {
		errs = append(errs, fmt.Sprintf("selector_agent %q must have can_orchestrate_workflows=true", oc.SelectorAgent))
	}

	if len(oc.Workflows) == 0 {
		errs = append(errs, "workflows must be non-empty")
	}

	if oc.DefaultWorkflow == "" {
		errs = append(errs, "default_workflow is required")
	} else if !containsStr(oc.Workflows, oc.DefaultWorkflow) {
		errs = append(errs, fmt.Sprintf("default_workflow %q is not in workflows", oc.DefaultWorkflow))
	}

	if oc.SelectionMaxRetries < 0 {
		errs = append(errs, "selection_max_retries must be >= 0")
	}

	for name, agent := range oc.Agents {
		if agent.Provider != "anthropic" && agent.Provider != "openai" {
			errs = append(errs, fmt.Sprintf("agents[%s].provider must be anthropic or openai, got %q", name, agent.Provider))
		}
		if agent.Model == "" {
			errs = append(errs, fmt.Sprintf("agents[%s].model is required", name))
		}
		if len(agent.Legacy) > 0 {
			if _, hasPW := agent.Legacy["private_workspace"]; hasPW {
				errs = append(errs, fmt.Sprintf("agents[%s]: legacy field private_workspace is no longer supported", name))
			}
			if _, hasSA := agent.Legacy["shared_access"]; hasSA {
				errs = append(errs, fmt.Sprintf("agents[%s]: legacy field shared_access is no longer supported", name))
			}
		}
	}

	limits := oc.WorkflowOrchestration
	if limits.DefaultStepTimeoutSeconds < 0 {
		errs = append(errs, "workflow_orchestration.default_step_timeout_seconds must be >= 0")
	}
	if limits.MaxStepTimeoutSeconds != 0 && limits.DefaultStepTimeoutSeconds > limits.MaxStepTimeoutSeconds {
		errs = append(errs, "workflow_orchestration.default_step_timeout_seconds exceeds max_step_timeout_seconds")
	}

	if oc.Queue.QuarantineAfterRetries < 0 {
		errs = append(errs, "queue.quarantine_after_retries must be >= 0")
	}

	if len(errs) > 0 {
		return &direrrors.ConfigInvalidError{Key: "orchestrator.yaml", Reason: strings.Join(errs, "; ")}
	}
	return nil
}

func containsStr(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
