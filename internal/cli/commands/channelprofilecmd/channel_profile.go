// Package channelprofilecmd implements `direclaw channel-profile
// {list,add,show,remove,set-orchestrator}`, CRUD over config.yaml's
// channel_profiles map. set-orchestrator mirrors the function-registry
// handler internal/orchestrator/functions_config.go registers for the
// selector's own `channel_profile.set_orchestrator` mirror.
package channelprofilecmd

import (
	"fmt"
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

// NewCommand builds `direclaw channel-profile`.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel-profile",
		Short: "Manage channel-profile-to-orchestrator bindings",
	}
	cmd.AddCommand(
		newListCommand(),
		newAddCommand(),
		newShowCommand(),
		newRemoveCommand(),
		newSetOrchestratorCommand(),
	)
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List channel profile ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadGlobal()
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(cfg.ChannelProfiles))
			for id := range cfg.ChannelProfiles {
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
	var channel, orchestratorID string
	cmd := &cobra.Command{
		Use:   "add <channel-profile-id>",
		Short: "Register a channel profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			cfg, path, err := loadGlobal()
			if err != nil {
				return err
			}
			if _, exists := cfg.ChannelProfiles[id]; exists {
				return &direrrors.UsageError{Command: "channel-profile add", Reason: fmt.Sprintf("channel profile %q already exists", id)}
			}
			if _, ok := cfg.Orchestrators[orchestratorID]; !ok {
				return &direrrors.ConfigInvalidError{Key: "orchestrators." + orchestratorID, Reason: "unknown orchestrator"}
			}
			if cfg.ChannelProfiles == nil {
				cfg.ChannelProfiles = map[string]config.ChannelProfile{}
			}
			cfg.ChannelProfiles[id] = config.ChannelProfile{Channel: channel, OrchestratorID: orchestratorID}
			if err := cfg.Save(path); err != nil {
				delete(cfg.ChannelProfiles, id)
				return fmt.Errorf("persist channel-profile add: %w", err)
			}
			return shared.PrintResult(map[string]any{"channelProfileId": id, "channel": channel, "orchestratorId": orchestratorID}, func() {
				fmt.Printf("added channel profile %s (%s -> %s)\n", id, channel, orchestratorID)
			})
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "Channel adapter tag (e.g. slack)")
	cmd.Flags().StringVar(&orchestratorID, "orchestrator-id", "", "Orchestrator this profile routes to")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <channel-profile-id>",
		Short: "Show a channel profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			cfg, _, err := loadGlobal()
			if err != nil {
				return err
			}
			profile, ok := cfg.ChannelProfiles[id]
			if !ok {
				return &direrrors.ConfigInvalidError{Key: "channel_profiles." + id, Reason: "unknown channel profile"}
			}
			return shared.PrintResult(profile, func() {
				fmt.Printf("channel profile: %s\n  channel: %s\n  orchestrator_id: %s\n", id, profile.Channel, profile.OrchestratorID)
			})
		},
	}
}

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <channel-profile-id>",
		Short: "Remove a channel profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			cfg, path, err := loadGlobal()
			if err != nil {
				return err
			}
			profile, ok := cfg.ChannelProfiles[id]
			if !ok {
				return &direrrors.ConfigInvalidError{Key: "channel_profiles." + id, Reason: "unknown channel profile"}
			}
			delete(cfg.ChannelProfiles, id)
			if err := cfg.Save(path); err != nil {
				cfg.ChannelProfiles[id] = profile
				return fmt.Errorf("persist channel-profile remove: %w", err)
			}
			return shared.PrintResult(map[string]any{"channelProfileId": id, "removed": true}, func() {
				fmt.Printf("removed channel profile %s\n", id)
			})
		},
	}
}

func newSetOrchestratorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-orchestrator <channel-profile-id> <orchestrator-id>",
		Short: "Repoint a channel profile at a different orchestrator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID, orchestratorID := args[0], args[1]
			cfg, path, err := loadGlobal()
			if err != nil {
				return err
			}
			profile, ok := cfg.ChannelProfiles[profileID]
			if !ok {
				return &direrrors.ConfigInvalidError{Key: "channel_profiles." + profileID, Reason: "unknown channel profile"}
			}
			if _, ok := cfg.Orchestrators[orchestratorID]; !ok {
				return &direrrors.ConfigInvalidError{Key: "orchestrators." + orchestratorID, Reason: "unknown orchestrator"}
			}
			previous := profile.OrchestratorID
			profile.OrchestratorID = orchestratorID
			cfg.ChannelProfiles[profileID] = profile
			if err := cfg.Save(path); err != nil {
				profile.OrchestratorID = previous
				cfg.ChannelProfiles[profileID] = profile
				return fmt.Errorf("persist set-orchestrator: %w", err)
			}
			return shared.PrintResult(map[string]any{"channelProfileId": profileID, "orchestratorId": orchestratorID}, func() {
				fmt.Printf("%s now routes to %s\n", profileID, orchestratorID)
			})
		},
	}
}
