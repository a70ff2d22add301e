package orchestrator

import (
	"context"
	"fmt"

	"github.com/direclaw/direclaw/internal/config"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// RegisterConfigFunctions wires `orchestrator.{list,show}` and
// `channel_profile.{list,show,set_orchestrator}` against the global
// config document. configPath is where set_orchestrator's edit is
// persisted back; cfg is mutated in place, and other holders of the
// config see the edit only when they next load the file.
//
// `schedule.*` is deliberately never registered: spec.md §1 scopes
// scheduler/cron to an external collaborator, and no SPEC_FULL.md
// component owns cron state to back it against.
func RegisterConfigFunctions(reg *FunctionRegistry, cfg *config.Config, configPath string) {
	reg.Register(FunctionDef{
		ID: "orchestrator.list",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			ids := make([]string, 0, len(cfg.Orchestrators))
			for id := range cfg.Orchestrators {
				ids = append(ids, id)
			}
			return map[string]any{"orchestrators": ids}, nil
		},
	})

	reg.Register(FunctionDef{
		ID:   "orchestrator.show",
		Args: map[string]ArgSpec{"orchestratorId": {Type: "string", Required: true}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			id := args["orchestratorId"].(string)
			ref, ok := cfg.Orchestrators[id]
			if !ok {
				return nil, &direrrors.ConfigInvalidError{Key: "orchestrators." + id, Reason: "unknown orchestrator"}
			}
			return map[string]any{
				"orchestratorId":   id,
				"privateWorkspace": ref.PrivateWorkspace,
				"sharedAccess":     ref.SharedAccess,
			}, nil
		},
	})

	reg.Register(FunctionDef{
		ID: "channel_profile.list",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			ids := make([]string, 0, len(cfg.ChannelProfiles))
			for id := range cfg.ChannelProfiles {
				ids = append(ids, id)
			}
			return map[string]any{"channelProfiles": ids}, nil
		},
	})

	reg.Register(FunctionDef{
		ID:   "channel_profile.show",
		Args: map[string]ArgSpec{"channelProfileId": {Type: "string", Required: true}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			id := args["channelProfileId"].(string)
			profile, ok := cfg.ChannelProfiles[id]
			if !ok {
				return nil, &direrrors.ConfigInvalidError{Key: "channel_profiles." + id, Reason: "unknown channel profile"}
			}
			return map[string]any{
				"channelProfileId": id,
				"channel":          profile.Channel,
				"orchestratorId":   profile.OrchestratorID,
			}, nil
		},
	})

	reg.Register(FunctionDef{
		ID: "channel_profile.set_orchestrator",
		Args: map[string]ArgSpec{
			"channelProfileId": {Type: "string", Required: true},
			"orchestratorId":   {Type: "string", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			profileID := args["channelProfileId"].(string)
			orchestratorID := args["orchestratorId"].(string)

			profile, ok := cfg.ChannelProfiles[profileID]
			if !ok {
				return nil, &direrrors.ConfigInvalidError{Key: "channel_profiles." + profileID, Reason: "unknown channel profile"}
			}
			if _, ok := cfg.Orchestrators[orchestratorID]; !ok {
				return nil, &direrrors.ConfigInvalidError{Key: "orchestrators." + orchestratorID, Reason: "unknown orchestrator"}
			}

			previous := profile.OrchestratorID
			profile.OrchestratorID = orchestratorID
			cfg.ChannelProfiles[profileID] = profile

			if err := cfg.Save(configPath); err != nil {
				profile.OrchestratorID = previous
				cfg.ChannelProfiles[profileID] = profile
				return nil, fmt.Errorf("orchestrator: persist channel_profile.set_orchestrator: %w", err)
			}
			return map[string]any{"channelProfileId": profileID, "orchestratorId": orchestratorID}, nil
		},
	})
}
