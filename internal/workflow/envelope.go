package workflow

import (
	"encoding/json"
	"regexp"
	"strings"

	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

var envelopePattern = regexp.MustCompile(`(?s)\[workflow_result\](.*?)\[/workflow_result\]`)

// ParseEnvelope extracts and validates the unique [workflow_result]{...}
// [/workflow_result] envelope from a provider's extracted message, per
// spec §4.5 step 7: exactly one envelope, object JSON, required
// status ∈ {complete, blocked, failed}, plus every non-optional key in
// declaredOutputs present.
func ParseEnvelope(runID, stepID string, attempt int, message string, declaredOutputs []string) (*Envelope, map[string]any, error) {
	matches := envelopePattern.FindAllStringSubmatch(message, -1)
	if len(matches) != 1 {
		return nil, nil, &direrrors.EnvelopeInvalidError{
			RunID: runID, StepID: stepID, Attempt: attempt,
			Reason: envelopeCountReason(len(matches)),
		}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(matches[0][1])), &raw); err != nil {
		return nil, nil, &direrrors.EnvelopeInvalidError{RunID: runID, StepID: stepID, Attempt: attempt, Reason: "envelope body is not a JSON object: " + err.Error()}
	}

	status, _ := raw["status"].(string)
	switch status {
	case "complete", "blocked", "failed":
	default:
		return nil, nil, &direrrors.EnvelopeInvalidError{RunID: runID, StepID: stepID, Attempt: attempt, Reason: "status must be one of complete, blocked, failed"}
	}

	env := &Envelope{Status: status}
	if s, ok := raw["summary"].(string); ok {
		env.Summary = s
	}
	if s, ok := raw["reply"].(string); ok {
		env.Reply = s
	}
	if s, ok := raw["decision"].(string); ok {
		env.Decision = strings.ToLower(s)
	}

	for _, declared := range declaredOutputs {
		key, optional := OptionalOutput(declared)
		if _, present := raw[key]; !present && !optional {
			return nil, nil, &direrrors.OutputMissingError{RunID: runID, StepID: stepID, Attempt: attempt, Key: key}
		}
	}

	return env, raw, nil
}

func envelopeCountReason(n int) string {
	if n == 0 {
		return "no [workflow_result] envelope found in provider output"
	}
	return "multiple [workflow_result] envelopes found in provider output"
}
