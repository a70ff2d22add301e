package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/direclaw/direclaw/internal/queue"
	"github.com/direclaw/direclaw/internal/workflow"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// ActiveRunIndex maps (channel, channelProfileId, conversationId) to the
// most recently started run id, so Route can resolve workflow_status
// requests that arrive without an explicit workflowRunId. Grounded on the
// teacher's internal/controller/runner.StateManager in-memory map+mutex
// idiom; rebuilt on daemon startup by scanning RunStore records rather
// than persisted separately, since it is a pure index over durable state.
type ActiveRunIndex struct {
	mu   sync.RWMutex
	runs map[string]string
}

// NewActiveRunIndex returns an empty index.
func NewActiveRunIndex() *ActiveRunIndex {
	return &ActiveRunIndex{runs: make(map[string]string)}
}

func conversationKey(channel, channelProfileID, conversationID string) string {
	return channel + "|" + channelProfileID + "|" + conversationID
}

// Set records runID as the active run for a conversation.
func (idx *ActiveRunIndex) Set(channel, channelProfileID, conversationID, runID string) {
	if conversationID == "" {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.runs[conversationKey(channel, channelProfileID, conversationID)] = runID
}

// Lookup returns the active run id for a conversation, if any.
func (idx *ActiveRunIndex) Lookup(channel, channelProfileID, conversationID string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	runID, ok := idx.runs[conversationKey(channel, channelProfileID, conversationID)]
	return runID, ok
}

// Router implements spec §4.4's full routing precedence: status commands
// answer from a progress snapshot without advancing any run; messages
// carrying a workflowRunId resume that run directly; everything else goes
// through the selector, whose chosen action is then dispatched. Grounded
// on the teacher's internal/controller HTTP handler dispatch-by-intent
// shape, generalized into this file-backed five-step precedence since the
// teacher routes webhook calls, not queued messages.
type Router struct {
	OrchestratorID       string
	DefaultWorkflow      string
	Engine               *workflow.Engine
	RunStore             *workflow.RunStore
	Selector             *Selector
	Investigator         *Investigator
	Functions            *FunctionRegistry
	ReplyPolicy          *ReplyPolicy
	ActiveRuns           *ActiveRunIndex
	SelectionMaxRetries  int
	AvailableWorkflowIDs []string
}

// Route resolves one queued Message into an OutgoingMessage, or nil if
// the message produces no reply (no_response).
func (r *Router) Route(ctx context.Context, msg *queue.Message) (*queue.OutgoingMessage, error) {
	if isStatusCommand(msg.Message) {
		return r.routeStatus(msg)
	}

	if msg.WorkflowRunID != "" {
		return r.routeResume(ctx, msg)
	}

	return r.routeSelect(ctx, msg)
}

// isStatusCommand recognizes the status/progress commands channels expose
// per spec §4.4 step 1 and §8, case-insensitively and with or without the
// leading slash, without invoking the selector at all.
func isStatusCommand(body string) bool {
	switch strings.ToLower(strings.TrimSpace(body)) {
	case "status", "/status", "progress", "/progress":
		return true
	}
	return false
}

// routeStatus answers from the active run's ProgressSnapshot without
// advancing it, per spec §4.4 step 1.
func (r *Router) routeStatus(msg *queue.Message) (*queue.OutgoingMessage, error) {
	runID := msg.WorkflowRunID
	if runID == "" {
		var ok bool
		runID, ok = r.ActiveRuns.Lookup(msg.Channel, msg.ChannelProfileID, msg.ConversationID)
		if !ok {
			return queue.ShapeOutgoing(msg, "", "No active workflow run for this conversation."), nil
		}
	}

	progress, err := r.RunStore.LoadProgress(runID)
	if err != nil {
		if _, ok := err.(*direrrors.RunNotFoundError); ok {
			return queue.ShapeOutgoing(msg, "", fmt.Sprintf("No such workflow run: %s", runID)), nil
		}
		return nil, err
	}

	body := fmt.Sprintf("Run %s: %s", progress.RunID, progress.State)
	if progress.Summary != "" {
		body += ", " + progress.Summary
	}
	return queue.ShapeOutgoing(msg, "", body), nil
}

// routeResume advances the run named by msg.WorkflowRunID directly,
// per spec §4.4 step 2. An unknown run id gets a deterministic reply
// rather than propagating a Go error up to the queue worker.
func (r *Router) routeResume(ctx context.Context, msg *queue.Message) (*queue.OutgoingMessage, error) {
	run, err := r.Engine.Resume(ctx, msg.WorkflowRunID)
	if err != nil {
		if _, ok := err.(*direrrors.RunNotFoundError); ok {
			return queue.ShapeOutgoing(msg, "", fmt.Sprintf("No such workflow run: %s", msg.WorkflowRunID)), nil
		}
		return nil, err
	}
	r.ActiveRuns.Set(msg.Channel, msg.ChannelProfileID, msg.ConversationID, run.RunID)
	if run.LastReply == "" {
		return nil, nil
	}
	return queue.ShapeOutgoing(msg, run.SelectedWorkflow, run.LastReply), nil
}

// routeSelect builds and invokes a SelectorRequest, retries selector
// failures up to SelectionMaxRetries, falls back to DefaultWorkflow, then
// dispatches the chosen action, per spec §4.4 steps 3-5.
func (r *Router) routeSelect(ctx context.Context, msg *queue.Message) (*queue.OutgoingMessage, error) {
	req := &SelectorRequest{
		SelectorID:         NewSelectorID(),
		ChannelProfileID:   msg.ChannelProfileID,
		MessageID:          msg.MessageID,
		ConversationID:     msg.ConversationID,
		UserMessage:        msg.Message,
		AvailableWorkflows: r.AvailableWorkflowIDs,
		DefaultWorkflow:    r.DefaultWorkflow,
		AvailableFunctions: r.Functions.IDs(),
		IsDirect:           msg.IsDirect,
		IsMentioned:        msg.IsMentioned,
	}

	var res *SelectorResult
	attempts := r.SelectionMaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req.SelectorID = NewSelectorID()
		var err error
		res, err = r.Selector.Invoke(ctx, req)
		if err != nil {
			return nil, err
		}
		if res.Status == SelectorSelected {
			break
		}
	}
	if res.Status != SelectorSelected {
		res = &SelectorResult{
			SelectorID:       req.SelectorID,
			Status:           SelectorSelected,
			Action:           ActionWorkflowStart,
			SelectedWorkflow: r.DefaultWorkflow,
			Reason:           clampReason("selector exhausted retries, falling back to default workflow"),
		}
	}

	res, err := r.ReplyPolicy.Override(res, msg.IsDirect, msg.IsMentioned, r.DefaultWorkflow)
	if err != nil {
		return nil, err
	}

	return r.dispatch(ctx, msg, res)
}

func (r *Router) dispatch(ctx context.Context, msg *queue.Message, res *SelectorResult) (*queue.OutgoingMessage, error) {
	switch res.Action {
	case ActionWorkflowStart:
		if !r.isAvailableWorkflow(res.SelectedWorkflow) {
			return queue.ShapeOutgoing(msg, "", fmt.Sprintf("No such workflow: %s", res.SelectedWorkflow)), nil
		}
		run, err := r.Engine.Start(ctx, res.SelectedWorkflow, workflow.StartInput{
			SourceMessageID:      msg.MessageID,
			SelectorID:           res.SelectorID,
			SelectedWorkflow:     res.SelectedWorkflow,
			StatusConversationID: msg.ConversationID,
			Channel:              msg.Channel,
			ChannelProfileID:     msg.ChannelProfileID,
			ConversationID:       msg.ConversationID,
			SenderID:             msg.SenderID,
		})
		if err != nil {
			if _, ok := err.(*direrrors.UnknownWorkflowError); ok {
				return queue.ShapeOutgoing(msg, "", fmt.Sprintf("No such workflow: %s", res.SelectedWorkflow)), nil
			}
			return nil, err
		}
		r.ActiveRuns.Set(msg.Channel, msg.ChannelProfileID, msg.ConversationID, run.RunID)
		if run.LastReply == "" {
			return nil, nil
		}
		return queue.ShapeOutgoing(msg, res.SelectedWorkflow, run.LastReply), nil

	case ActionWorkflowStatus:
		return r.routeStatus(msg)

	case ActionDiagnosticsInvestigate:
		result, err := r.Investigator.Investigate(ctx, res.DiagnosticsScope)
		if err != nil {
			return nil, err
		}
		return queue.ShapeOutgoing(msg, "", result.Finding), nil

	case ActionCommandInvoke:
		if !r.Functions.Has(res.FunctionID) {
			return queue.ShapeOutgoing(msg, "", fmt.Sprintf("No such command: %s", res.FunctionID)), nil
		}
		out, err := r.Functions.Dispatch(ctx, res.FunctionID, res.FunctionArgs)
		if err != nil {
			if _, ok := err.(*direrrors.UnknownFunctionError); ok {
				return queue.ShapeOutgoing(msg, "", fmt.Sprintf("No such command: %s", res.FunctionID)), nil
			}
			return nil, err
		}
		return queue.ShapeOutgoing(msg, "", fmt.Sprintf("%v", out)), nil

	case ActionNoResponse:
		return nil, nil

	default:
		return nil, fmt.Errorf("orchestrator: unrecognized selector action %q", res.Action)
	}
}

// isAvailableWorkflow reports whether id is one of the workflows this
// orchestrator can start, per spec §4.4 step 4: the selector's choice is
// validated before ever reaching the engine, rather than trusting a
// possibly-hallucinated workflow id through to Engine.Start.
func (r *Router) isAvailableWorkflow(id string) bool {
	for _, w := range r.AvailableWorkflowIDs {
		if w == id {
			return true
		}
	}
	return false
}
