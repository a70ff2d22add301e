// Package channelscmd implements `direclaw channels reset` and the
// `direclaw channels slack {sync,socket status,socket reconnect,backfill
// run}` subtree. Slack API client transport is an external collaborator
// per spec §1's Non-goals, so every slack verb fails explicitly rather
// than faking success; reset clears the local channel adapter's
// request/reply directories, the one piece of channel state this core
// actually owns (internal/channel.LocalAdapter).
package channelscmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// NewCommand builds `direclaw channels`.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Manage channel adapter state",
	}
	cmd.AddCommand(newResetCommand(), newSlackCommand())
	return cmd
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the local channel adapter's pending requests and replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			root := filepath.Join(shared.StateRoot(), "local")
			for _, sub := range []string{"requests", "replies"} {
				if err := os.RemoveAll(filepath.Join(root, sub)); err != nil {
					return err
				}
			}
			return shared.PrintResult(map[string]any{"reset": true}, func() {
				fmt.Println("local channel requests and replies cleared")
			})
		},
	}
}

func unsupportedSlack(use string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: "Not implemented: Slack transport is an external collaborator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return &direrrors.UsageError{
				Command: "channels slack " + use,
				Reason:  "this build has no Slack API client wired in; operate the Slack app directly or supply channel events via `direclaw send`",
			}
		},
	}
}

func newSlackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slack",
		Short: "Slack channel adapter commands (not implemented)",
	}

	socket := &cobra.Command{Use: "socket", Short: "Slack socket-mode connection commands (not implemented)"}
	socket.AddCommand(unsupportedSlack("status"), unsupportedSlack("reconnect"))

	backfill := &cobra.Command{Use: "backfill", Short: "Slack history backfill commands (not implemented)"}
	backfill.AddCommand(unsupportedSlack("run"))

	cmd.AddCommand(unsupportedSlack("sync"), socket, backfill)
	return cmd
}
