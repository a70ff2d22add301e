// Package orchestratoragentcmd implements `direclaw orchestrator-agent
// {list,add,show,remove,reset}`: CRUD over one orchestrator.yaml's
// `agents` map, plus `reset`, which drops the one-shot reset flag file
// spec §4.6's provider runner checks before deciding whether to resume
// an agent's prior conversation. Mutation follows the same
// load-mutate-Save-rollback discipline as orchestratorcmd.
package orchestratoragentcmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
	"github.com/direclaw/direclaw/internal/config"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

func loadDoc(orchestratorID string) (*config.OrchestratorConfig, string, string, error) {
	stateRoot := shared.StateRoot()
	cfg, err := config.Load(config.GlobalConfigPath(stateRoot))
	if err != nil {
		return nil, "", "", err
	}
	if _, ok := cfg.Orchestrators[orchestratorID]; !ok {
		return nil, "", "", &direrrors.ConfigInvalidError{Key: "orchestrators." + orchestratorID, Reason: "unknown orchestrator"}
	}
	path := cfg.OrchestratorConfigPath(orchestratorID)
	oc, err := config.LoadOrchestrator(path)
	if err != nil {
		return nil, "", "", err
	}
	return oc, path, cfg.OrchestratorRoot(orchestratorID), nil
}

// NewCommand builds `direclaw orchestrator-agent`.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orchestrator-agent",
		Short: "Manage an orchestrator's configured agents",
	}
	cmd.AddCommand(
		newListCommand(),
		newAddCommand(),
		newShowCommand(),
		newRemoveCommand(),
		newResetCommand(),
	)
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <orchestrator-id>",
		Short: "List an orchestrator's agent ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, _, _, err := loadDoc(args[0])
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(oc.Agents))
			for id := range oc.Agents {
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
	var provider, model string
	var canOrchestrate bool
	cmd := &cobra.Command{
		Use:   "add <orchestrator-id> <agent-id>",
		Short: "Add an agent to an orchestrator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestratorID, agentID := args[0], args[1]
			oc, path, _, err := loadDoc(orchestratorID)
			if err != nil {
				return err
			}
			if _, exists := oc.Agents[agentID]; exists {
				return &direrrors.UsageError{Command: "orchestrator-agent add", Reason: fmt.Sprintf("agent %q already exists", agentID)}
			}
			if oc.Agents == nil {
				oc.Agents = map[string]config.AgentDef{}
			}
			oc.Agents[agentID] = config.AgentDef{Provider: provider, Model: model, CanOrchestrateWorkflows: canOrchestrate}
			if err := oc.Save(path); err != nil {
				delete(oc.Agents, agentID)
				return fmt.Errorf("persist orchestrator-agent add: %w", err)
			}
			return shared.PrintResult(map[string]any{"orchestratorId": orchestratorID, "agentId": agentID}, func() {
				fmt.Printf("added agent %s (%s/%s) to %s\n", agentID, provider, model, orchestratorID)
			})
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "anthropic or openai")
	cmd.Flags().StringVar(&model, "model", "", "Model alias or concrete id")
	cmd.Flags().BoolVar(&canOrchestrate, "can-orchestrate-workflows", false, "Allow this agent to act as a selector")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <orchestrator-id> <agent-id>",
		Short: "Show one agent's configuration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestratorID, agentID := args[0], args[1]
			oc, _, _, err := loadDoc(orchestratorID)
			if err != nil {
				return err
			}
			agent, ok := oc.Agents[agentID]
			if !ok {
				return &direrrors.ConfigInvalidError{Key: "agents." + agentID, Reason: "unknown agent"}
			}
			return shared.PrintResult(agent, func() {
				fmt.Printf("agent: %s\n  provider: %s\n  model: %s\n  can_orchestrate_workflows: %v\n",
					agentID, agent.Provider, agent.Model, agent.CanOrchestrateWorkflows)
			})
		},
	}
}

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <orchestrator-id> <agent-id>",
		Short: "Remove an agent from an orchestrator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestratorID, agentID := args[0], args[1]
			oc, path, _, err := loadDoc(orchestratorID)
			if err != nil {
				return err
			}
			agent, ok := oc.Agents[agentID]
			if !ok {
				return &direrrors.ConfigInvalidError{Key: "agents." + agentID, Reason: "unknown agent"}
			}
			if oc.SelectorAgent == agentID {
				return &direrrors.UsageError{Command: "orchestrator-agent remove", Reason: fmt.Sprintf("agent %q is the selector_agent; set-selector-agent to another agent first", agentID)}
			}
			delete(oc.Agents, agentID)
			if err := oc.Save(path); err != nil {
				oc.Agents[agentID] = agent
				return fmt.Errorf("persist orchestrator-agent remove: %w", err)
			}
			return shared.PrintResult(map[string]any{"orchestratorId": orchestratorID, "agentId": agentID, "removed": true}, func() {
				fmt.Printf("removed agent %s from %s\n", agentID, orchestratorID)
			})
		},
	}
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <orchestrator-id> <agent-id>",
		Short: "Drop the agent's prior conversation on its next invocation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestratorID, agentID := args[0], args[1]
			oc, _, root, err := loadDoc(orchestratorID)
			if err != nil {
				return err
			}
			if _, ok := oc.Agents[agentID]; !ok {
				return &direrrors.ConfigInvalidError{Key: "agents." + agentID, Reason: "unknown agent"}
			}
			flagPath := config.AgentResetFlagPath(root, agentID)
			if err := os.MkdirAll(filepath.Dir(flagPath), 0o755); err != nil {
				return fmt.Errorf("create reset flag dir: %w", err)
			}
			if err := os.WriteFile(flagPath, nil, 0o600); err != nil {
				return fmt.Errorf("write reset flag: %w", err)
			}
			return shared.PrintResult(map[string]any{"orchestratorId": orchestratorID, "agentId": agentID, "reset": true}, func() {
				fmt.Printf("%s/%s will start a fresh conversation on its next invocation\n", orchestratorID, agentID)
			})
		},
	}
}
