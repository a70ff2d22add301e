// Package cli assembles the direclaw command tree. Grounded on the
// teacher's internal/cli/root.go (a bare cobra.Command carrying global
// flags, with SilenceUsage/SilenceErrors so HandleExitError owns exit
// codes) and its cmd/conductor/main.go wiring pattern of one
// AddCommand call per internal/commands/<name> package, collapsed onto
// DireClaw's own verb tree (spec §6).
package cli

import (
	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/commands/attachcmd"
	"github.com/direclaw/direclaw/internal/cli/commands/authcmd"
	"github.com/direclaw/direclaw/internal/cli/commands/channelprofilecmd"
	"github.com/direclaw/direclaw/internal/cli/commands/channelscmd"
	"github.com/direclaw/direclaw/internal/cli/commands/daemoncmd"
	"github.com/direclaw/direclaw/internal/cli/commands/doctorcmd"
	"github.com/direclaw/direclaw/internal/cli/commands/modelcmd"
	"github.com/direclaw/direclaw/internal/cli/commands/orchestratoragentcmd"
	"github.com/direclaw/direclaw/internal/cli/commands/orchestratorcmd"
	"github.com/direclaw/direclaw/internal/cli/commands/providercmd"
	"github.com/direclaw/direclaw/internal/cli/commands/sendcmd"
	"github.com/direclaw/direclaw/internal/cli/commands/setupcmd"
	"github.com/direclaw/direclaw/internal/cli/commands/updatecmd"
	"github.com/direclaw/direclaw/internal/cli/commands/versioncmd"
	"github.com/direclaw/direclaw/internal/cli/commands/workflowcmd"
	"github.com/direclaw/direclaw/internal/cli/shared"
)

// SetVersion sets build-time version information (called from main).
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// HandleExitError prints err and exits with its mapped exit code.
func HandleExitError(err error) {
	shared.HandleExitError(err)
}

// NewRootCommand builds the full direclaw command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "direclaw",
		Short: "DireClaw - channel-driven multi-agent workflow orchestration",
		Long: `DireClaw runs a supervisor daemon that routes chat-channel messages to
LLM-provider-backed workflows and reports progress back to the channel
it came from.

Write config.yaml under the state root and check it with 'direclaw doctor',
then run 'direclaw start' to launch the daemon and 'direclaw status' to
check on it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	jsonPtr, stateRootPtr := shared.RegisterFlagPointers()
	cmd.PersistentFlags().BoolVar(jsonPtr, "json", false, "Output machine-readable JSON instead of plain text")
	cmd.PersistentFlags().StringVar(stateRootPtr, "state-root", "", "DireClaw state root (default: $HOME/.direclaw)")

	cmd.AddCommand(
		daemoncmd.NewStartCommand(),
		daemoncmd.NewStopCommand(),
		daemoncmd.NewRestartCommand(),
		daemoncmd.NewStatusCommand(),
		daemoncmd.NewLogsCommand(),
		setupcmd.NewCommand(),
		sendcmd.NewCommand(),
		attachcmd.NewCommand(),
		doctorcmd.NewCommand(),
		updatecmd.NewCommand(),
		authcmd.NewCommand(),
		providercmd.NewCommand(),
		modelcmd.NewCommand(),
		orchestratorcmd.NewCommand(),
		orchestratoragentcmd.NewCommand(),
		workflowcmd.NewCommand(),
		channelprofilecmd.NewCommand(),
		channelscmd.NewCommand(),
		versioncmd.NewCommand(),
	)

	return cmd
}
