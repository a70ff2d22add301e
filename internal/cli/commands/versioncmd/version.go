// Package versioncmd implements `direclaw version`.
package versioncmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
)

// Info is the JSON-shaped version payload.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

// NewCommand builds `direclaw version`.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, c, b := shared.GetVersion()
			info := Info{Version: v, Commit: c, BuildDate: b}
			return shared.PrintResult(info, func() {
				fmt.Printf("direclaw %s (%s, built %s)\n", info.Version, info.Commit, info.BuildDate)
			})
		},
	}
}
