package orchestrator

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ReplyPolicy implements spec §4.4's channel-agnostic reply rules by
// compiling them as boolean predicates over {is_direct, is_mentioned}
// instead of hand-rolled if/else, the same approach the teacher's
// pkg/workflow/expression.Evaluator takes for step conditions (compile
// once with expr.Compile, cache the *vm.Program, expr.Run per
// evaluation).
//
// Rule 1: is_direct=true => must reply.
// Rule 2: is_mentioned=true => must reply.
// Rule 3: otherwise the selector may choose no_response.
// For rules 1-2, a selector no_response is overridden to
// workflow_start(default_workflow).
type ReplyPolicy struct {
	mustReplyProgram *vm.Program
}

// NewReplyPolicy compiles the reply-policy predicate once.
func NewReplyPolicy() (*ReplyPolicy, error) {
	env := map[string]any{"is_direct": false, "is_mentioned": false}
	program, err := expr.Compile("is_direct || is_mentioned", expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("orchestrator: compile reply policy: %w", err)
	}
	return &ReplyPolicy{mustReplyProgram: program}, nil
}

// MustReply evaluates rules 1-2.
func (p *ReplyPolicy) MustReply(isDirect, isMentioned bool) (bool, error) {
	out, err := expr.Run(p.mustReplyProgram, map[string]any{
		"is_direct":    isDirect,
		"is_mentioned": isMentioned,
	})
	if err != nil {
		return false, fmt.Errorf("orchestrator: evaluate reply policy: %w", err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("orchestrator: reply policy expression returned non-bool %T", out)
	}
	return result, nil
}

// Override applies spec §4.4's rule 1/2 override: a selector no_response
// is replaced by workflow_start(defaultWorkflow) whenever a reply is
// mandatory.
func (p *ReplyPolicy) Override(res *SelectorResult, isDirect, isMentioned bool, defaultWorkflow string) (*SelectorResult, error) {
	if res.Action != ActionNoResponse {
		return res, nil
	}
	must, err := p.MustReply(isDirect, isMentioned)
	if err != nil {
		return nil, err
	}
	if !must {
		return res, nil
	}
	overridden := *res
	overridden.Action = ActionWorkflowStart
	overridden.SelectedWorkflow = defaultWorkflow
	overridden.Reason = clampReason("no_response overridden: reply required (" + overridden.Reason + ")")
	return &overridden, nil
}
