// Package sendcmd implements `direclaw send`: submit a message to a
// running direclawd as if it arrived over a local channel, for scripting
// and manual testing. Grounded on the teacher's internal/commands/debug
// attach.go (client.New + cobra shape) but posting rather than
// streaming, since DireClaw's control plane exposes send as a fire-and
// forget POST rather than an RPC round-trip.
package sendcmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
	"github.com/direclaw/direclaw/internal/control"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// NewCommand builds `direclaw send <message>`.
func NewCommand() *cobra.Command {
	var (
		sender         string
		senderID       string
		conversationID string
		files          []string
		messageID      string
	)
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message to the running daemon as a local channel event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if senderID == "" {
				return &direrrors.UsageError{Command: "send", Reason: "--sender-id is required"}
			}
			if messageID == "" {
				messageID = uuid.NewString()
			}

			stateRoot := shared.StateRoot()
			client, err := shared.NewControlClient(stateRoot)
			if err != nil {
				return fmt.Errorf("connect to direclawd (is it running? try `direclaw start`): %w", err)
			}

			req := &control.SendRequest{
				Sender:         sender,
				SenderID:       senderID,
				Message:        args[0],
				ConversationID: conversationID,
				Files:          files,
				MessageID:      messageID,
			}
			if err := client.Send(cmd.Context(), req); err != nil {
				return err
			}
			return shared.PrintResult(map[string]any{"messageId": messageID, "state": "accepted"}, func() {
				fmt.Printf("accepted (messageId=%s)\n", messageID)
			})
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "cli", "Sender name to report with the message")
	cmd.Flags().StringVar(&senderID, "sender-id", "", "Stable id of the local sender (required)")
	cmd.Flags().StringVar(&conversationID, "conversation-id", "", "Conversation id to thread this message into")
	cmd.Flags().StringSliceVar(&files, "file", nil, "Absolute path to attach (repeatable)")
	cmd.Flags().StringVar(&messageID, "message-id", "", "Stable message id (generated if omitted)")
	return cmd
}
