// Package updatecmd implements `direclaw update check|apply`. Packaging
// and release tooling are external collaborators per spec §1's
// Non-goals, so there is no upstream release feed to check against;
// `update check` instead compares the CLI's version with the version the
// locally running direclawd reports in its status (drift is reported
// only when the daemon reports a version), and `update apply` remains an explicit
// unsupported path per spec §6 and the accompanying Open Question,
// rather than faking a success it cannot perform.
package updatecmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// NewCommand builds `direclaw update`.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for or apply updates",
	}
	cmd.AddCommand(newCheckCommand(), newApplyCommand())
	return cmd
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Compare the CLI's build version against the running daemon's",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliVersion, _, _ := shared.GetVersion()

			client, err := shared.NewControlClient(shared.StateRoot())
			if err != nil {
				return fmt.Errorf("connect to direclawd (is it running? try `direclaw start`): %w", err)
			}
			raw, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			var status struct {
				Version string `json:"version"`
			}
			if err := json.Unmarshal(raw, &status); err != nil {
				return fmt.Errorf("parse daemon status: %w", err)
			}

			drifted := status.Version != "" && status.Version != cliVersion
			return shared.PrintResult(map[string]any{
				"cliVersion":    cliVersion,
				"daemonVersion": status.Version,
				"drifted":       drifted,
			}, func() {
				if drifted {
					fmt.Printf("cli %s, daemon %s: versions differ; restart the daemon after upgrading the binary\n", cliVersion, status.Version)
				} else if status.Version == "" {
					fmt.Printf("cli %s; running daemon did not report a version\n", cliVersion)
				} else {
					fmt.Printf("cli %s matches running daemon\n", cliVersion)
				}
			})
		},
	}
}

func newApplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply a pending update (not implemented)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return &direrrors.UsageError{
				Command: "update apply",
				Reason:  "this build has no packaging/release channel wired in; replace the direclaw/direclawd binaries and run `direclaw restart` instead",
			}
		},
	}
}
