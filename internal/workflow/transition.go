package workflow

// resolveTransition applies spec §4.5's per-step-kind transition rules.
// Returns the next step id (if advancing), or a terminal state plus
// reason (if the run has ended). No current step kind parks a run, so
// waiting is always false here; advance still handles a true value by
// saving the run in RunWaiting at next.
func (e *Engine) resolveTransition(def *Definition, step StepDefinition, outcome *attemptOutcome) (next string, terminalState RunState, terminalReason string, waiting bool) {
	switch step.Kind {
	case StepAgentReview:
		switch outcome.env.Decision {
		case "approve":
			return e.nextOrTerminal(def, step.OnApprove)
		case "reject":
			return e.nextOrTerminal(def, step.OnReject)
		default:
			return "", RunFailed, "envelope_missing", false
		}
	default: // StepAgentTask
		if outcome.env.Status == "failed" {
			return "", RunFailed, "provider_error", false
		}
		if step.Next != "" {
			return e.nextOrTerminal(def, step.Next)
		}
		lexical := def.LexicalNext(step.ID)
		if lexical == "" {
			return "", RunSucceeded, "", false
		}
		return e.nextOrTerminal(def, lexical)
	}
}

func (e *Engine) nextOrTerminal(def *Definition, stepID string) (string, RunState, string, bool) {
	if stepID == "" {
		return "", RunSucceeded, "", false
	}
	if _, ok := def.Step(stepID); !ok {
		return "", RunFailed, "unknown_step", false
	}
	return stepID, "", "", false
}
