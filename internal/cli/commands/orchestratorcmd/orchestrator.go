// Package orchestratorcmd implements `direclaw orchestrator
// {list,add,show,remove,set-private-workspace,grant-shared-access,
// revoke-shared-access,set-selector-agent,set-default-workflow,
// set-selection-max-retries}`. Each verb is a thin CRUD wrapper over the
// same config.Config/config.OrchestratorConfig documents internal/config
// validates and the daemon loads at start (a running daemon picks up
// these edits on restart);
// mutation logic mirrors internal/orchestrator's function-registry
// handlers in functions_config.go (load, mutate in memory, Save,
// roll back on write failure) rather than going through the live
// daemon, since these are file-backed CRUD operations an offline CLI
// can perform directly.
package orchestratorcmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
	"github.com/direclaw/direclaw/internal/config"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

func loadGlobal() (*config.Config, string, error) {
	stateRoot := shared.StateRoot()
	path := config.GlobalConfigPath(stateRoot)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// NewCommand builds `direclaw orchestrator`.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "Manage registered orchestrators",
	}
	cmd.AddCommand(
		newListCommand(),
		newAddCommand(),
		newShowCommand(),
		newRemoveCommand(),
		newSetPrivateWorkspaceCommand(),
		newGrantSharedAccessCommand(),
		newRevokeSharedAccessCommand(),
		newSetSelectorAgentCommand(),
		newSetDefaultWorkflowCommand(),
		newSetSelectionMaxRetriesCommand(),
	)
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered orchestrator ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadGlobal()
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(cfg.Orchestrators))
			for id := range cfg.Orchestrators {
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

func newAddCommand() *cobra.Command {
	var privateWorkspace string
	cmd := &cobra.Command{
		Use:   "add <orchestrator-id>",
		Short: "Register a new orchestrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			cfg, path, err := loadGlobal()
			if err != nil {
				return err
			}
			if _, exists := cfg.Orchestrators[id]; exists {
				return &direrrors.UsageError{Command: "orchestrator add", Reason: fmt.Sprintf("orchestrator %q already registered", id)}
			}
			if cfg.Orchestrators == nil {
				cfg.Orchestrators = map[string]config.OrchestratorRef{}
			}
			cfg.Orchestrators[id] = config.OrchestratorRef{PrivateWorkspace: privateWorkspace}
			if err := cfg.Save(path); err != nil {
				delete(cfg.Orchestrators, id)
				return fmt.Errorf("persist orchestrator add: %w", err)
			}

			root := cfg.OrchestratorRoot(id)
			if err := os.MkdirAll(root, 0o755); err != nil {
				return fmt.Errorf("create orchestrator root %s: %w", root, err)
			}
			return shared.PrintResult(map[string]any{"orchestratorId": id, "root": root}, func() {
				fmt.Printf("registered orchestrator %s at %s\n", id, root)
				fmt.Printf("now create %s before starting workflows against it\n", cfg.OrchestratorConfigPath(id))
			})
		},
	}
	cmd.Flags().StringVar(&privateWorkspace, "private-workspace", "", "Absolute path to a dedicated workspace (default: <workspaces_path>/<id>)")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <orchestrator-id>",
		Short: "Show a registered orchestrator's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			cfg, _, err := loadGlobal()
			if err != nil {
				return err
			}
			ref, ok := cfg.Orchestrators[id]
			if !ok {
				return &direrrors.ConfigInvalidError{Key: "orchestrators." + id, Reason: "unknown orchestrator"}
			}

			out := map[string]any{
				"orchestratorId":   id,
				"privateWorkspace": ref.PrivateWorkspace,
				"sharedAccess":     ref.SharedAccess,
				"root":             cfg.OrchestratorRoot(id),
			}
			oc, ocErr := config.LoadOrchestrator(cfg.OrchestratorConfigPath(id))
			if ocErr == nil {
				out["selectorAgent"] = oc.SelectorAgent
				out["defaultWorkflow"] = oc.DefaultWorkflow
				out["workflows"] = oc.Workflows
				out["selectionMaxRetries"] = oc.SelectionMaxRetries
			} else {
				out["orchestratorConfigError"] = ocErr.Error()
			}

			return shared.PrintResult(out, func() {
				fmt.Printf("orchestrator: %s\n", id)
				fmt.Printf("  root: %s\n", out["root"])
				fmt.Printf("  private_workspace: %s\n", ref.PrivateWorkspace)
				fmt.Printf("  shared_access: %v\n", ref.SharedAccess)
				if ocErr != nil {
					fmt.Printf("  orchestrator.yaml: %s\n", ocErr.Error())
				} else {
					fmt.Printf("  selector_agent: %s\n", oc.SelectorAgent)
					fmt.Printf("  default_workflow: %s\n", oc.DefaultWorkflow)
					fmt.Printf("  workflows: %v\n", oc.Workflows)
					fmt.Printf("  selection_max_retries: %d\n", oc.SelectionMaxRetries)
				}
			})
		},
	}
}

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <orchestrator-id>",
		Short: "Unregister an orchestrator (leaves its workspace on disk)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			cfg, path, err := loadGlobal()
			if err != nil {
				return err
			}
			ref, ok := cfg.Orchestrators[id]
			if !ok {
				return &direrrors.ConfigInvalidError{Key: "orchestrators." + id, Reason: "unknown orchestrator"}
			}
			for profileID, profile := range cfg.ChannelProfiles {
				if profile.OrchestratorID == id {
					return &direrrors.UsageError{Command: "orchestrator remove", Reason: fmt.Sprintf("channel profile %q still targets %q; run channel-profile set-orchestrator first", profileID, id)}
				}
			}
			delete(cfg.Orchestrators, id)
			if err := cfg.Save(path); err != nil {
				cfg.Orchestrators[id] = ref
				return fmt.Errorf("persist orchestrator remove: %w", err)
			}
			return shared.PrintResult(map[string]any{"orchestratorId": id, "removed": true}, func() {
				fmt.Printf("unregistered orchestrator %s (workspace left in place)\n", id)
			})
		},
	}
}

func newSetPrivateWorkspaceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-private-workspace <orchestrator-id> <path>",
		Short: "Set an orchestrator's dedicated workspace path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, workspacePath := args[0], args[1]
			cfg, path, err := loadGlobal()
			if err != nil {
				return err
			}
			ref, ok := cfg.Orchestrators[id]
			if !ok {
				return &direrrors.ConfigInvalidError{Key: "orchestrators." + id, Reason: "unknown orchestrator"}
			}
			previous := ref.PrivateWorkspace
			ref.PrivateWorkspace = workspacePath
			cfg.Orchestrators[id] = ref
			if err := cfg.Save(path); err != nil {
				ref.PrivateWorkspace = previous
				cfg.Orchestrators[id] = ref
				return fmt.Errorf("persist set-private-workspace: %w", err)
			}
			return shared.PrintResult(map[string]any{"orchestratorId": id, "privateWorkspace": workspacePath}, func() {
				fmt.Printf("%s private_workspace = %s\n", id, workspacePath)
			})
		},
	}
}

func newGrantSharedAccessCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-shared-access <orchestrator-id> <shared-workspace-name>",
		Short: "Grant an orchestrator access to a shared workspace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, sharedName := args[0], args[1]
			cfg, path, err := loadGlobal()
			if err != nil {
				return err
			}
			ref, ok := cfg.Orchestrators[id]
			if !ok {
				return &direrrors.ConfigInvalidError{Key: "orchestrators." + id, Reason: "unknown orchestrator"}
			}
			if _, ok := cfg.SharedWorkspaces[sharedName]; !ok {
				return &direrrors.ConfigInvalidError{Key: "shared_workspaces." + sharedName, Reason: "unknown shared workspace"}
			}
			for _, existing := range ref.SharedAccess {
				if existing == sharedName {
					return shared.PrintResult(map[string]any{"orchestratorId": id, "sharedAccess": ref.SharedAccess}, func() {
						fmt.Printf("%s already has access to %s\n", id, sharedName)
					})
				}
			}
			previous := ref.SharedAccess
			ref.SharedAccess = append(append([]string{}, ref.SharedAccess...), sharedName)
			cfg.Orchestrators[id] = ref
			if err := cfg.Save(path); err != nil {
				ref.SharedAccess = previous
				cfg.Orchestrators[id] = ref
				return fmt.Errorf("persist grant-shared-access: %w", err)
			}
			return shared.PrintResult(map[string]any{"orchestratorId": id, "sharedAccess": ref.SharedAccess}, func() {
				fmt.Printf("%s granted access to %s\n", id, sharedName)
			})
		},
	}
}

func newRevokeSharedAccessCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-shared-access <orchestrator-id> <shared-workspace-name>",
		Short: "Revoke an orchestrator's access to a shared workspace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, sharedName := args[0], args[1]
			cfg, path, err := loadGlobal()
			if err != nil {
				return err
			}
			ref, ok := cfg.Orchestrators[id]
			if !ok {
				return &direrrors.ConfigInvalidError{Key: "orchestrators." + id, Reason: "unknown orchestrator"}
			}
			previous := ref.SharedAccess
			filtered := make([]string, 0, len(ref.SharedAccess))
			for _, existing := range ref.SharedAccess {
				if existing != sharedName {
					filtered = append(filtered, existing)
				}
			}
			ref.SharedAccess = filtered
			cfg.Orchestrators[id] = ref
			if err := cfg.Save(path); err != nil {
				ref.SharedAccess = previous
				cfg.Orchestrators[id] = ref
				return fmt.Errorf("persist revoke-shared-access: %w", err)
			}
			return shared.PrintResult(map[string]any{"orchestratorId": id, "sharedAccess": ref.SharedAccess}, func() {
				fmt.Printf("%s revoked access to %s\n", id, sharedName)
			})
		},
	}
}

func loadOrchestratorDoc(cfg *config.Config, id string) (*config.OrchestratorConfig, string, error) {
	if _, ok := cfg.Orchestrators[id]; !ok {
		return nil, "", &direrrors.ConfigInvalidError{Key: "orchestrators." + id, Reason: "unknown orchestrator"}
	}
	path := cfg.OrchestratorConfigPath(id)
	oc, err := config.LoadOrchestrator(path)
	if err != nil {
		return nil, "", err
	}
	return oc, path, nil
}

func newSetSelectorAgentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-selector-agent <orchestrator-id> <agent-id>",
		Short: "Set the agent that selects workflows for an orchestrator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, agentID := args[0], args[1]
			cfg, _, err := loadGlobal()
			if err != nil {
				return err
			}
			oc, path, err := loadOrchestratorDoc(cfg, id)
			if err != nil {
				return err
			}
			previous := oc.SelectorAgent
			oc.SelectorAgent = agentID
			if err := oc.Save(path); err != nil {
				oc.SelectorAgent = previous
				return fmt.Errorf("persist set-selector-agent: %w", err)
			}
			return shared.PrintResult(map[string]any{"orchestratorId": id, "selectorAgent": agentID}, func() {
				fmt.Printf("%s selector_agent = %s\n", id, agentID)
			})
		},
	}
}

func newSetDefaultWorkflowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default-workflow <orchestrator-id> <workflow-id>",
		Short: "Set an orchestrator's default workflow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, workflowID := args[0], args[1]
			cfg, _, err := loadGlobal()
			if err != nil {
				return err
			}
			oc, path, err := loadOrchestratorDoc(cfg, id)
			if err != nil {
				return err
			}
			previous := oc.DefaultWorkflow
			oc.DefaultWorkflow = workflowID
			if err := oc.Save(path); err != nil {
				oc.DefaultWorkflow = previous
				return fmt.Errorf("persist set-default-workflow: %w", err)
			}
			return shared.PrintResult(map[string]any{"orchestratorId": id, "defaultWorkflow": workflowID}, func() {
				fmt.Printf("%s default_workflow = %s\n", id, workflowID)
			})
		},
	}
}

func newSetSelectionMaxRetriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-selection-max-retries <orchestrator-id> <count>",
		Short: "Set how many times selection may retry before falling back to the default workflow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			var count int
			if _, err := fmt.Sscanf(args[1], "%d", &count); err != nil {
				return &direrrors.UsageError{Command: "orchestrator set-selection-max-retries", Reason: "count must be an integer"}
			}
			cfg, _, err := loadGlobal()
			if err != nil {
				return err
			}
			oc, path, err := loadOrchestratorDoc(cfg, id)
			if err != nil {
				return err
			}
			previous := oc.SelectionMaxRetries
			oc.SelectionMaxRetries = count
			if err := oc.Save(path); err != nil {
				oc.SelectionMaxRetries = previous
				return fmt.Errorf("persist set-selection-max-retries: %w", err)
			}
			return shared.PrintResult(map[string]any{"orchestratorId": id, "selectionMaxRetries": count}, func() {
				fmt.Printf("%s selection_max_retries = %d\n", id, count)
			})
		},
	}
}
