// Package setupcmd implements `direclaw setup`. Interactive setup TUI
// rendering is an external collaborator per spec §1's Non-goals; this
// command fails explicitly with remediation text rather than faking a
// successful run, per spec §6's "unsupported paths must fail explicitly".
package setupcmd

import (
	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/config"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// NewCommand builds `direclaw setup`.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactively configure DireClaw (not implemented)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return &direrrors.UsageError{
				Command: "setup",
				Reason: "interactive setup is not implemented by this build; create " +
					config.GlobalConfigPath("$HOME/.direclaw") + " and an orchestrator.yaml by hand, " +
					"then verify with `direclaw doctor`",
			}
		},
	}
}
