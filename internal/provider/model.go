// Package provider invokes the external agent CLIs (claude, codex) that
// actually do the work a workflow step asks for, and extracts their final
// assistant message. Grounded on the teacher's
// pkg/llm/providers/claudecode package: the same exec.CommandContext +
// captured-stdout/stderr invocation shape, the same sanitized-error-log
// discipline, generalized from a single in-process llm.Provider interface
// implementation into the two fixed CLI invocations spec §4.6 names.
package provider

import direrrors "github.com/direclaw/direclaw/pkg/errors"

// Provider identifies which external agent CLI a step invokes.
type Provider string

const (
	Anthropic Provider = "anthropic"
	OpenAI    Provider = "openai"
)

// ResolveModel maps a model alias to its concrete identifier per spec
// §4.6. Anthropic aliases translate; OpenAI model names pass through
// unchanged. An unrecognized Anthropic alias fails validation before the
// process ever spawns.
func ResolveModel(p Provider, model string) (string, error) {
	switch p {
	case Anthropic:
		switch model {
		case "sonnet":
			return "claude-sonnet-4-5", nil
		case "opus":
			return "claude-opus-4-6", nil
		case "claude-sonnet-4-5", "claude-opus-4-6":
			return model, nil
		default:
			return "", &direrrors.ConfigInvalidError{
				Key:    "agents.<id>.model",
				Reason: "unknown anthropic model alias " + model,
			}
		}
	case OpenAI:
		if model == "" {
			return "", &direrrors.ConfigInvalidError{Key: "agents.<id>.model", Reason: "model is required for openai agents"}
		}
		return model, nil
	default:
		return "", &direrrors.ConfigInvalidError{Key: "agents.<id>.provider", Reason: "unknown provider " + string(p)}
	}
}
