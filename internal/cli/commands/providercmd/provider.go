// Package providercmd implements `direclaw provider`: list the provider
// backends the runtime knows how to invoke. Provider CLI implementations
// themselves are an external collaborator (spec §1's Non-goals); this
// command only reports what internal/provider supports.
package providercmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
	"github.com/direclaw/direclaw/internal/provider"
)

// NewCommand builds `direclaw provider`.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "provider",
		Short: "List supported provider backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			providers := []provider.Provider{provider.Anthropic, provider.OpenAI}
			return shared.PrintResult(providers, func() {
				for _, p := range providers {
					fmt.Println(p)
				}
			})
		},
	}
}
