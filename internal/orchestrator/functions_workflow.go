package orchestrator

import (
	"context"

	"github.com/direclaw/direclaw/internal/workflow"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// RegisterWorkflowFunctions wires the `workflow.{list,show,status,
// progress,cancel,run}` functions spec §4.4 names directly onto a live
// workflow.Engine/workflow.RunStore, the one function family this build
// can back completely (the CLI mirrors the same verbs per spec §6).
func RegisterWorkflowFunctions(reg *FunctionRegistry, engine *workflow.Engine, store *workflow.RunStore) {
	reg.Register(FunctionDef{
		ID: "workflow.list",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			ids := make([]string, 0, len(engine.Workflows))
			for id := range engine.Workflows {
				ids = append(ids, id)
			}
			return map[string]any{"workflows": ids}, nil
		},
	})

	reg.Register(FunctionDef{
		ID:   "workflow.show",
		Args: map[string]ArgSpec{"workflowId": {Type: "string", Required: true}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			id := args["workflowId"].(string)
			def, ok := engine.Workflows[id]
			if !ok {
				return nil, &direrrors.UnknownWorkflowError{WorkflowID: id}
			}
			steps := make([]string, 0, len(def.Steps))
			for _, st := range def.Steps {
				steps = append(steps, st.ID)
			}
			return map[string]any{"workflowId": def.ID, "steps": steps}, nil
		},
	})

	reg.Register(FunctionDef{
		ID:   "workflow.status",
		Args: map[string]ArgSpec{"runId": {Type: "string", Required: true}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			run, err := store.LoadRun(args["runId"].(string))
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"runId":          run.RunID,
				"state":          string(run.State),
				"currentStepId":  run.CurrentStepID,
				"terminalReason": run.TerminalReason,
			}, nil
		},
	})

	reg.Register(FunctionDef{
		ID:   "workflow.progress",
		Args: map[string]ArgSpec{"runId": {Type: "string", Required: true}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			p, err := store.LoadProgress(args["runId"].(string))
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"runId":              p.RunID,
				"state":              string(p.State),
				"summary":            p.Summary,
				"pendingHumanInput":  p.PendingHumanInput,
				"nextExpectedAction": p.NextExpectedAction,
			}, nil
		},
	})

	reg.Register(FunctionDef{
		ID:   "workflow.cancel",
		Args: map[string]ArgSpec{"runId": {Type: "string", Required: true}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			runID := args["runId"].(string)
			if err := engine.Cancel(runID); err != nil {
				return nil, err
			}
			return map[string]any{"runId": runID, "cancelRequested": true}, nil
		},
	})

	reg.Register(FunctionDef{
		ID:   "workflow.run",
		Args: map[string]ArgSpec{"workflowId": {Type: "string", Required: true}, "inputs": {Type: "object", Required: false}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			workflowID := args["workflowId"].(string)
			var inputs map[string]any
			if raw, ok := args["inputs"]; ok {
				inputs, _ = raw.(map[string]any)
			}
			run, err := engine.Start(ctx, workflowID, workflow.StartInput{Inputs: inputs})
			if err != nil {
				return nil, err
			}
			return map[string]any{"runId": run.RunID, "state": string(run.State)}, nil
		},
	})
}
