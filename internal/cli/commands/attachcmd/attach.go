// Package attachcmd implements `direclaw attach`: long-poll the control
// plane for the reply to a previously sent message. Grounded on the
// teacher's internal/commands/debug attach.go's attach-and-stream shape,
// collapsed to a single long-poll request since DireClaw's control plane
// serves one reply per message id rather than a continuous event
// stream.
package attachcmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// NewCommand builds `direclaw attach <message-id>`.
func NewCommand() *cobra.Command {
	var timeoutSeconds int
	cmd := &cobra.Command{
		Use:   "attach <message-id>",
		Short: "Wait for the daemon's reply to a previously sent message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messageID := args[0]
			if messageID == "" {
				return &direrrors.UsageError{Command: "attach", Reason: "message id is required"}
			}

			client, err := shared.NewControlClient(shared.StateRoot())
			if err != nil {
				return fmt.Errorf("connect to direclawd (is it running? try `direclaw start`): %w", err)
			}

			reply, ok, err := client.Attach(cmd.Context(), messageID, time.Duration(timeoutSeconds)*time.Second)
			if err != nil {
				return err
			}
			if !ok {
				return shared.PrintResult(map[string]any{"messageId": messageID, "state": "timeout"}, func() {
					fmt.Printf("no reply to %s within %ds\n", messageID, timeoutSeconds)
				})
			}
			return shared.PrintResult(reply, func() {
				fmt.Printf("[%s] %s\n", reply.Agent, reply.Message)
				for _, f := range reply.Files {
					fmt.Printf("  file: %s\n", f)
				}
			})
		},
	}
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 25, "Seconds to wait for a reply before giving up")
	return cmd
}
