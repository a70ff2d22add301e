// Package modelcmd implements `direclaw model`: resolve a model alias
// against a provider the same way the provider runner does before
// spawning, so operators can check an orchestrator.yaml agent entry
// without waiting for a failed run. Grounded on internal/provider's
// ResolveModel, spec §4.6's alias table.
package modelcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
	"github.com/direclaw/direclaw/internal/provider"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// NewCommand builds `direclaw model <provider> <alias>`.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "model <provider> <alias>",
		Short: "Resolve a model alias for a provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := provider.Provider(args[0])
			if p != provider.Anthropic && p != provider.OpenAI {
				return &direrrors.UsageError{Command: "model", Reason: fmt.Sprintf("unknown provider %q", args[0])}
			}
			resolved, err := provider.ResolveModel(p, args[1])
			if err != nil {
				return err
			}
			return shared.PrintResult(map[string]string{"provider": string(p), "alias": args[1], "model": resolved}, func() {
				fmt.Println(resolved)
			})
		},
	}
}
