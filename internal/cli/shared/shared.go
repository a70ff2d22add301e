// Package shared holds the direclaw CLI's cross-cutting state: the
// persistent global flags every subcommand reads, version metadata set
// at build time, JSON/plain output selection, and exit-code handling.
// Grounded on the teacher's internal/commands/shared package (flags.go,
// json_output.go, exit_codes.go), collapsed to the flags DireClaw's
// commands actually need and remapped onto spec §7's 0/1/2/3 exit codes
// instead of the teacher's own numbering.
package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/direclaw/direclaw/internal/config"
	"github.com/direclaw/direclaw/internal/control"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

var (
	jsonFlag      bool
	stateRootFlag string

	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlagPointers returns pointers for the root command to bind
// --json and --state-root to.
func RegisterFlagPointers() (*bool, *string) {
	return &jsonFlag, &stateRootFlag
}

// SetVersion records build-time version metadata (called from main).
func SetVersion(v, c, b string) {
	version, commit, buildDate = v, c, b
}

// GetVersion returns the recorded version metadata.
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// JSON reports whether output should be a single JSON document instead
// of human-readable text.
func JSON() bool {
	return jsonFlag
}

// StateRoot resolves the effective state root: the --state-root flag if
// set, otherwise config.DefaultStateRoot's $HOME/.direclaw.
func StateRoot() string {
	if stateRootFlag != "" {
		return stateRootFlag
	}
	return config.DefaultStateRoot()
}

// PrintResult writes v as either formatted JSON (--json) or via
// plainFn, the command's human-readable renderer.
func PrintResult(v any, plainFn func()) error {
	if jsonFlag {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	plainFn()
	return nil
}

// NewControlClient dials the control-plane socket under stateRoot,
// minting a token from the same session secret the daemon wrote. Used
// by every command that talks to a running direclawd (send, attach,
// update check).
func NewControlClient(stateRoot string) (*control.Client, error) {
	secret, err := control.LoadOrCreateSessionSecret(stateRoot)
	if err != nil {
		return nil, fmt.Errorf("load control session secret: %w", err)
	}
	clientID := "cli"
	if u, err := user.Current(); err == nil && u.Username != "" {
		clientID = u.Username
	}
	return control.NewClient(config.ControlSocketPath(stateRoot), secret, clientID, control.DefaultTokenTTL)
}

// ControlDialTimeout is a connection-wait bound for control-plane
// commands. NewControlClient does not apply it; a control.Client's
// requests are bounded by its own 30-second HTTP timeout.
const ControlDialTimeout = 3 * time.Second

// HandleExitError prints err (if non-nil) and exits with the code
// pkg/errors.ExitCode maps it to. Called once, from main, around the
// root command's Execute result.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	if jsonFlag {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
	}
	os.Exit(direrrors.ExitCode(err))
}
