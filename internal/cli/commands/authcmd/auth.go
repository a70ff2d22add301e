// Package authcmd implements `direclaw auth sync`. 1Password-backed
// credential sync is an external collaborator per spec §1's Non-goals;
// this command checks config.yaml's auth_sync shape but refuses to
// perform the sync itself, failing explicitly rather than faking
// success per spec §6.
package authcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
	"github.com/direclaw/direclaw/internal/config"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// NewCommand builds `direclaw auth`.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Credential sync commands",
	}
	cmd.AddCommand(newSyncCommand())
	return cmd
}

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync provider credentials from the configured secret store (not implemented)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateRoot := shared.StateRoot()
			cfg, err := config.Load(config.GlobalConfigPath(stateRoot))
			if err != nil {
				return err
			}
			if cfg.AuthSync == nil || !cfg.AuthSync.Enabled {
				return &direrrors.UsageError{Command: "auth sync", Reason: "auth_sync is not enabled in config.yaml"}
			}
			return &direrrors.UsageError{
				Command: "auth sync",
				Reason:  fmt.Sprintf("auth_sync is enabled but the 1Password sync backend is not built into this binary; set %s manually and run `direclaw doctor`", "OP_SERVICE_ACCOUNT_TOKEN"),
			}
		},
	}
}
