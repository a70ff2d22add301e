package orchestrator

import (
	"context"
	"fmt"

	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// ArgSpec names one function argument's expected JSON type
// ("string"|"number"|"boolean"|"object"|"array") and whether it is
// required.
type ArgSpec struct {
	Type     string
	Required bool
}

// FunctionHandler executes a registered function_id against validated
// args and returns a JSON-serializable result.
type FunctionHandler func(ctx context.Context, args map[string]any) (map[string]any, error)

// FunctionDef is one entry in the function registry spec §4.4 names:
// `workflow.{list,show,status,progress,cancel,run}`,
// `orchestrator.{list,show}`,
// `channel_profile.{list,show,set_orchestrator}`, and scheduler
// `schedule.*` (the last has no backing component in this build, see
// DESIGN.md, and is therefore never registered).
type FunctionDef struct {
	ID      string
	Args    map[string]ArgSpec
	Handler FunctionHandler
}

// FunctionRegistry holds every function_id a selector's command_invoke
// action may dispatch to, per spec §4.4. Grounded on the teacher's
// internal/controller/runner.StateManager map+mutex-free registry idiom
// (a plain map built once at startup, read-only thereafter, no
// concurrent registration after wiring).
type FunctionRegistry struct {
	defs map[string]FunctionDef
}

// NewFunctionRegistry returns an empty registry; call Register for each
// function the orchestrator exposes.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{defs: make(map[string]FunctionDef)}
}

// Register adds one function definition.
func (r *FunctionRegistry) Register(def FunctionDef) {
	r.defs[def.ID] = def
}

// IDs returns every registered function id, for building a
// SelectorRequest's availableFunctions list.
func (r *FunctionRegistry) IDs() []string {
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	return ids
}

// Has reports whether functionID is registered.
func (r *FunctionRegistry) Has(functionID string) bool {
	_, ok := r.defs[functionID]
	return ok
}

// Dispatch validates args against functionID's ArgSpec map and invokes
// its handler. Unknown function ids are rejected per spec §4.4's
// "Unknown function ids are rejected" rule.
func (r *FunctionRegistry) Dispatch(ctx context.Context, functionID string, args map[string]any) (map[string]any, error) {
	def, ok := r.defs[functionID]
	if !ok {
		return nil, &direrrors.UnknownFunctionError{FunctionID: functionID}
	}
	if err := validateArgs(functionID, def.Args, args); err != nil {
		return nil, err
	}
	return def.Handler(ctx, args)
}

func validateArgs(functionID string, specs map[string]ArgSpec, args map[string]any) error {
	for name, spec := range specs {
		v, present := args[name]
		if !present {
			if spec.Required {
				return &direrrors.ConfigInvalidError{Key: functionID + "." + name, Reason: "required argument missing"}
			}
			continue
		}
		if !typeMatches(spec.Type, v) {
			return &direrrors.ConfigInvalidError{Key: functionID + "." + name, Reason: fmt.Sprintf("expected %s, got %T", spec.Type, v)}
		}
	}
	return nil
}

func typeMatches(want string, v any) bool {
	switch want {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	default:
		return true
	}
}
