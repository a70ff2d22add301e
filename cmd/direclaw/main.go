// Command direclaw is the CLI entrypoint: `direclaw start` spawns the
// separate direclawd binary in the background, and every other verb
// (status/send/attach/workflow/orchestrator/...) talks to the running
// daemon over its control socket or reads its file-backed state
// directly. Grounded on the teacher's cmd/conductor/main.go's "normal
// CLI mode" branch; DireClaw has no equivalent of that file's
// --controller-child branch, since the daemon here is a standalone
// binary (cmd/direclawd) rather than a flag-gated mode of this one.
package main

import (
	"github.com/direclaw/direclaw/internal/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
