// Package workflowcmd implements `direclaw workflow
// {list,show,run,status,progress,cancel,add,remove}`. list/show/status/
// progress are strictly read-only over the same RunStore/definition
// files the daemon's engine writes (spec §4.9: "observers are strictly
// read-only"); add/remove manage workflow definition YAML files via
// internal/workflow's definition loader; cancel flips RunRecord's
// cancelRequested flag in place (internal/workflow.Engine.Cancel needs
// only a RunStore to do this, no live process); run constructs a
// one-shot local Engine and drives it to completion or a waiting state,
// the same construction internal/workflow's own tests use minus the
// mock runner.
package workflowcmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
	"github.com/direclaw/direclaw/internal/config"
	"github.com/direclaw/direclaw/internal/workflow"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

func loadOrchestrator(orchestratorID string) (*config.Config, *config.OrchestratorConfig, error) {
	cfg, err := config.Load(config.GlobalConfigPath(shared.StateRoot()))
	if err != nil {
		return nil, nil, err
	}
	if _, ok := cfg.Orchestrators[orchestratorID]; !ok {
		return nil, nil, &direrrors.ConfigInvalidError{Key: "orchestrators." + orchestratorID, Reason: "unknown orchestrator"}
	}
	oc, err := config.LoadOrchestrator(cfg.OrchestratorConfigPath(orchestratorID))
	if err != nil {
		return nil, nil, err
	}
	return cfg, oc, nil
}

// NewCommand builds `direclaw workflow`.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect and drive workflow runs and definitions",
	}
	cmd.AddCommand(
		newListCommand(),
		newShowCommand(),
		newRunCommand(),
		newStatusCommand(),
		newProgressCommand(),
		newCancelCommand(),
		newAddCommand(),
		newRemoveCommand(),
	)
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <orchestrator-id>",
		Short: "List workflow definitions known to an orchestrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadOrchestrator(args[0])
			if err != nil {
				return err
			}
			defs, err := workflow.LoadDefinitions(cfg.OrchestratorRoot(args[0]))
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(defs))
			for id := range defs {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			return shared.PrintResult(ids, func() {
				for _, id := range ids {
					fmt.Println(id)
				}
			})
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <orchestrator-id> <workflow-id>",
		Short: "Show a workflow definition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestratorID, workflowID := args[0], args[1]
			cfg, _, err := loadOrchestrator(orchestratorID)
			if err != nil {
				return err
			}
			defs, err := workflow.LoadDefinitions(cfg.OrchestratorRoot(orchestratorID))
			if err != nil {
				return err
			}
			def, ok := defs[workflowID]
			if !ok {
				return &direrrors.UnknownWorkflowError{WorkflowID: workflowID}
			}
			return shared.PrintResult(def, func() {
				fmt.Printf("workflow: %s\n", def.ID)
				for _, step := range def.Steps {
					fmt.Printf("  step %s (agent=%s)\n", step.ID, step.Agent)
				}
			})
		},
	}
}

func buildEngine(orchestratorID string) (*workflow.Engine, *config.Config, error) {
	cfg, oc, err := loadOrchestrator(orchestratorID)
	if err != nil {
		return nil, nil, err
	}
	root := cfg.OrchestratorRoot(orchestratorID)
	defs, err := workflow.LoadDefinitions(root)
	if err != nil {
		return nil, nil, err
	}

	var sharedWorkspaces []workflow.SharedWorkspace
	for _, name := range cfg.Orchestrators[orchestratorID].SharedAccess {
		if ws, ok := cfg.SharedWorkspaces[name]; ok {
			sharedWorkspaces = append(sharedWorkspaces, workflow.SharedWorkspace{Name: name, Path: ws.Path})
		}
	}

	engine := &workflow.Engine{
		OrchestratorID:   orchestratorID,
		PrivateWorkspace: root,
		Workflows:        defs,
		Agents:           oc.Agents,
		Store:            workflow.NewRunStore(root),
		Guard: &workflow.WorkspaceGuard{
			OrchestratorID:   orchestratorID,
			PrivateWorkspace: root,
			Shared:           sharedWorkspaces,
			SecurityLogPath:  config.SecurityLogPath(shared.StateRoot()),
		},
		Orchestration: workflow.Orchestration{
			DefaultRunTimeoutSeconds:  oc.WorkflowOrchestration.DefaultRunTimeoutSeconds,
			DefaultStepTimeoutSeconds: oc.WorkflowOrchestration.DefaultStepTimeoutSeconds,
			MaxStepTimeoutSeconds:     oc.WorkflowOrchestration.MaxStepTimeoutSeconds,
			MaxTotalIterations:        oc.WorkflowOrchestration.MaxTotalIterations,
		},
	}
	return engine, cfg, nil
}

func newRunCommand() *cobra.Command {
	var inputs []string
	cmd := &cobra.Command{
		Use:   "run <orchestrator-id> <workflow-id>",
		Short: "Start a new run of a workflow in this process",
		Long: `Runs the workflow engine locally against the same files the daemon
uses. Intended for manual testing; if a daemon is already running against
this orchestrator, prefer sending a message that the selector will route,
since two engines writing the same run concurrently is not supported.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestratorID, workflowID := args[0], args[1]
			engine, _, err := buildEngine(orchestratorID)
			if err != nil {
				return err
			}

			parsedInputs := map[string]any{}
			for _, kv := range inputs {
				key, value, ok := splitKV(kv)
				if !ok {
					return &direrrors.UsageError{Command: "workflow run", Reason: fmt.Sprintf("--input %q must be key=value", kv)}
				}
				parsedInputs[key] = value
			}

			run, err := engine.Start(cmd.Context(), workflowID, workflow.StartInput{Inputs: parsedInputs})
			if err != nil {
				return err
			}
			return shared.PrintResult(run, func() {
				fmt.Printf("run %s: %s\n", run.RunID, run.State)
			})
		},
	}
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "key=value workflow input (repeatable)")
	return cmd
}

func splitKV(kv string) (string, string, bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <orchestrator-id> <run-id>",
		Short: "Show a run's current RunRecord",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestratorID, runID := args[0], args[1]
			cfg, _, err := loadOrchestrator(orchestratorID)
			if err != nil {
				return err
			}
			store := workflow.NewRunStore(cfg.OrchestratorRoot(orchestratorID))
			run, err := store.LoadRun(runID)
			if err != nil {
				return err
			}
			return shared.PrintResult(run, func() {
				fmt.Printf("run %s: state=%s step=%s attempt=%d\n", run.RunID, run.State, run.CurrentStepID, run.CurrentAttempt)
			})
		},
	}
}

func newProgressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <orchestrator-id> <run-id>",
		Short: "Show a run's latest ProgressSnapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestratorID, runID := args[0], args[1]
			cfg, _, err := loadOrchestrator(orchestratorID)
			if err != nil {
				return err
			}
			store := workflow.NewRunStore(cfg.OrchestratorRoot(orchestratorID))
			progress, err := store.LoadProgress(runID)
			if err != nil {
				return err
			}
			return shared.PrintResult(progress, func() {
				fmt.Printf("run %s: %s (%s)\n", progress.RunID, progress.State, progress.Summary)
			})
		},
	}
}

func newCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <orchestrator-id> <run-id>",
		Short: "Request cancellation of a running workflow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestratorID, runID := args[0], args[1]
			cfg, _, err := loadOrchestrator(orchestratorID)
			if err != nil {
				return err
			}
			engine := &workflow.Engine{Store: workflow.NewRunStore(cfg.OrchestratorRoot(orchestratorID))}
			if err := engine.Cancel(runID); err != nil {
				return err
			}
			return shared.PrintResult(map[string]any{"runId": runID, "cancelRequested": true}, func() {
				fmt.Printf("cancel requested for run %s\n", runID)
			})
		},
	}
}

func newAddCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add <orchestrator-id>",
		Short: "Add a workflow definition from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestratorID := args[0]
			if file == "" {
				return &direrrors.UsageError{Command: "workflow add", Reason: "--file is required"}
			}
			cfg, _, err := loadOrchestrator(orchestratorID)
			if err != nil {
				return err
			}
			def, err := workflow.LoadDefinitionFile(file)
			if err != nil {
				return err
			}
			if err := workflow.SaveDefinition(cfg.OrchestratorRoot(orchestratorID), def); err != nil {
				return err
			}
			return shared.PrintResult(map[string]any{"orchestratorId": orchestratorID, "workflowId": def.ID}, func() {
				fmt.Printf("added workflow %s to %s\n", def.ID, orchestratorID)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path to the workflow definition YAML file")
	return cmd
}

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <orchestrator-id> <workflow-id>",
		Short: "Remove a workflow definition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestratorID, workflowID := args[0], args[1]
			cfg, oc, err := loadOrchestrator(orchestratorID)
			if err != nil {
				return err
			}
			if oc.DefaultWorkflow == workflowID {
				return &direrrors.UsageError{Command: "workflow remove", Reason: fmt.Sprintf("workflow %q is the default_workflow; set-default-workflow to another workflow first", workflowID)}
			}
			if err := workflow.RemoveDefinition(cfg.OrchestratorRoot(orchestratorID), workflowID); err != nil {
				return err
			}
			return shared.PrintResult(map[string]any{"orchestratorId": orchestratorID, "workflowId": workflowID, "removed": true}, func() {
				fmt.Printf("removed workflow %s from %s\n", workflowID, orchestratorID)
			})
		},
	}
}
