package workflow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// RenderContext carries every value an attempt's prompt/context templates
// may reference, per spec §4.8's token list.
type RenderContext struct {
	Inputs           map[string]any
	StepOutputs      map[string]map[string]any // stepId -> outputs
	State            map[string]any
	RunID            string
	StepID           string
	Attempt          int
	RunWorkspace     string
	OutputSchemaJSON string
	OutputPaths      map[string]string // key -> resolved path

	Channel          string
	ChannelProfileID string
	ConversationID   string
	SenderID         string
	SelectorID       string
}

var tokenPattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_.]+)\}\}`)

// Render replaces every {{token}} in tmpl per spec §4.8. A missing
// required token (one that does not resolve to a value) returns an error
// naming the token; unknown token syntax (a `{{...}}` with no resolver
// match) is left in the rendered string but reported via the second
// return value so the caller can surface it in the attempt log, per the
// spec's distinction between "missing" and "unknown syntax".
func (c *RenderContext) Render(tmpl string) (string, []string, error) {
	var missing error
	var unknown []string

	out := tokenPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		if missing != nil {
			return match
		}
		token := match[2 : len(match)-2]
		val, known, ok := c.resolve(token)
		if !known {
			unknown = append(unknown, token)
			return match
		}
		if !ok {
			missing = fmt.Errorf("workflow: required token %q did not resolve", token)
			return match
		}
		return val
	})

	if missing != nil {
		return "", unknown, missing
	}
	return out, unknown, nil
}

// resolve dispatches a dotted token path to its value. known=false means
// the token's namespace (prefix) isn't one this context understands at
// all; ok=false with known=true means the namespace is understood but the
// specific key is absent.
func (c *RenderContext) resolve(token string) (value string, known, ok bool) {
	parts := strings.Split(token, ".")
	switch parts[0] {
	case "inputs":
		if len(parts) != 2 {
			return "", true, false
		}
		v, present := c.Inputs[parts[1]]
		if !present {
			return "", true, false
		}
		return stringify(v), true, true
	case "steps":
		if len(parts) != 4 || parts[2] != "outputs" {
			return "", true, false
		}
		step, present := c.StepOutputs[parts[1]]
		if !present {
			return "", true, false
		}
		v, present := step[parts[3]]
		if !present {
			return "", true, false
		}
		return stringify(v), true, true
	case "state":
		if len(parts) != 2 {
			return "", true, false
		}
		v, present := c.State[parts[1]]
		if !present {
			return "", true, false
		}
		return stringify(v), true, true
	case "workflow":
		if len(parts) < 2 {
			return "", true, false
		}
		return c.resolveWorkflowToken(parts[1:])
	case "channel":
		return c.Channel, true, c.Channel != ""
	case "channel_profile_id":
		return c.ChannelProfileID, true, c.ChannelProfileID != ""
	case "conversation_id":
		return c.ConversationID, true, c.ConversationID != ""
	case "sender_id":
		return c.SenderID, true, c.SenderID != ""
	case "selector_id":
		return c.SelectorID, true, c.SelectorID != ""
	default:
		return "", false, false
	}
}

func (c *RenderContext) resolveWorkflowToken(rest []string) (string, bool, bool) {
	switch strings.Join(rest, ".") {
	case "run_id":
		return c.RunID, true, c.RunID != ""
	case "step_id":
		return c.StepID, true, c.StepID != ""
	case "attempt":
		return fmt.Sprintf("%d", c.Attempt), true, true
	case "run_workspace":
		return c.RunWorkspace, true, c.RunWorkspace != ""
	case "output_schema_json":
		return c.OutputSchemaJSON, true, c.OutputSchemaJSON != ""
	case "output_paths_json":
		data, err := json.Marshal(c.OutputPaths)
		if err != nil {
			return "", true, false
		}
		return string(data), true, true
	default:
		if len(rest) == 2 && rest[0] == "output_paths" {
			p, present := c.OutputPaths[rest[1]]
			return p, true, present
		}
		return "", false, false
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
