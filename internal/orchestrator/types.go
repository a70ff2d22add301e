// Package orchestrator turns a claimed queue message into a concrete next
// action: a status snapshot, a resumed workflow run, a freshly selected
// workflow, a registered function invocation, or a diagnostics
// investigation. Grounded on the teacher's pkg/workflow/expression package
// for the reply-policy predicate engine and internal/jq for diagnostics
// queries; the routing precedence itself has no teacher analogue (the
// teacher routes via HTTP webhook handlers, not a file-backed selector
// round-trip) and is built fresh against spec §4.4's five-step precedence.
package orchestrator

// Action is the selector's chosen next action, per spec §3/§4.4.
type Action string

const (
	ActionWorkflowStart          Action = "workflow_start"
	ActionWorkflowStatus         Action = "workflow_status"
	ActionDiagnosticsInvestigate Action = "diagnostics_investigate"
	ActionCommandInvoke          Action = "command_invoke"
	ActionNoResponse             Action = "no_response"
)

// SelectorStatus is the selector result's outcome.
type SelectorStatus string

const (
	SelectorSelected SelectorStatus = "selected"
	SelectorFailed   SelectorStatus = "failed"
)

// SelectorRequest is persisted under
// <orchestrator_runtime_root>/orchestrator/select/incoming, then moved to
// processing, per spec §3.
type SelectorRequest struct {
	SelectorID         string   `json:"selectorId"`
	ChannelProfileID   string   `json:"channelProfileId,omitempty"`
	MessageID          string   `json:"messageId"`
	ConversationID     string   `json:"conversationId,omitempty"`
	UserMessage        string   `json:"userMessage"`
	AvailableWorkflows []string `json:"availableWorkflows"`
	DefaultWorkflow    string   `json:"defaultWorkflow"`
	AvailableFunctions []string `json:"availableFunctions"`
	IsDirect           bool     `json:"isDirect,omitempty"`
	IsMentioned        bool     `json:"isMentioned,omitempty"`
}

// SelectorResult is persisted under .../orchestrator/select/results, per
// spec §3.
type SelectorResult struct {
	SelectorID       string         `json:"selectorId"`
	Status           SelectorStatus `json:"status"`
	Action           Action         `json:"action,omitempty"`
	SelectedWorkflow string         `json:"selectedWorkflow,omitempty"`
	FunctionID       string         `json:"functionId,omitempty"`
	FunctionArgs     map[string]any `json:"functionArgs,omitempty"`
	DiagnosticsScope string         `json:"diagnosticsScope,omitempty"`
	Reason           string         `json:"reason,omitempty"` // <=200 chars
}

// maxReasonLen enforces spec §3's "reason (<=200 chars)" bound.
const maxReasonLen = 200

func clampReason(reason string) string {
	if len(reason) <= maxReasonLen {
		return reason
	}
	return reason[:maxReasonLen]
}
