package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/direclaw/direclaw/internal/fsutil"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// SharedWorkspace names one logical shared workspace root an orchestrator
// may be granted access to.
type SharedWorkspace struct {
	Name string
	Path string
}

// WorkspaceGuard enforces spec §4.7: every provider invocation's working
// set must resolve inside the orchestrator's private workspace or one of
// its granted shared workspaces. Grounded on the teacher's
// pkg/workflow/security.go validation-result idiom (typed findings
// instead of bare errors at the check sites) combined with
// internal/fsutil's canonical-path primitives for the actual containment
// test, since the teacher's own security.go checks a different thing
// (shell-injection and credential patterns, not filesystem containment).
type WorkspaceGuard struct {
	OrchestratorID   string
	PrivateWorkspace string
	Shared           []SharedWorkspace
	SecurityLogPath  string
}

// reservedOutputNames are output_files targets that must never be used
// since the attempt lifecycle reserves them for its own metadata.
var reservedOutputNames = []string{"prompt.md", "context.md", "attempt.json"}

// IsReservedOutputName reports whether name collides with a reserved
// attempt file. The patterns are literal names, so only an exact,
// case-sensitive match of the base name is rejected.
func IsReservedOutputName(name string) bool {
	base := filepath.Base(name)
	for _, r := range reservedOutputNames {
		if ok, _ := doublestar.Match(r, base); ok {
			return true
		}
	}
	return false
}

// Check verifies that candidate path lies inside the orchestrator's
// private workspace or a granted shared workspace. On denial it appends a
// line to security.log and returns a WorkspaceDeniedError; callers must
// call Check before creating any directory for the attempt.
func (g *WorkspaceGuard) Check(candidate string) error {
	if ok, err := fsutil.IsPrefixPath(g.PrivateWorkspace, candidate); err == nil && ok {
		return nil
	}
	for _, sw := range g.Shared {
		if ok, err := fsutil.IsPrefixPath(sw.Path, candidate); err == nil && ok {
			return nil
		}
	}
	g.logDenied(candidate)
	return &direrrors.WorkspaceDeniedError{OrchestratorID: g.OrchestratorID, Path: candidate}
}

// securityLogEntry is one newline-delimited JSON record appended to
// logs/security.log, keeping the audit trail machine-parseable.
type securityLogEntry struct {
	Time           string `json:"time"`
	Event          string `json:"event"`
	OrchestratorID string `json:"orchestratorId"`
	Path           string `json:"path"`
}

func (g *WorkspaceGuard) logDenied(path string) {
	if g.SecurityLogPath == "" {
		return
	}
	entry := securityLogEntry{
		Time:           time.Now().UTC().Format(time.RFC3339),
		Event:          "workspace_denied",
		OrchestratorID: g.OrchestratorID,
		Path:           path,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	f, err := os.OpenFile(g.SecurityLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(data, '\n'))
}

// ResolveOutputPath interpolates an output_files template with the
// attempt's run id/step id/attempt number, validates it canonicalizes
// inside the attempt root, rejects reserved filenames, and returns the
// absolute path. Per spec §4.5 step 5.
func ResolveOutputPath(attemptRoot, key, template string, runID, stepID string, attempt int) (string, error) {
	rendered := renderOutputTemplate(template, runID, stepID, attempt)
	if IsReservedOutputName(rendered) {
		return "", &direrrors.OutputPathUnsafeError{RunID: runID, StepID: stepID, Attempt: attempt, Key: key, Path: rendered}
	}
	resolved, ok, err := fsutil.CanonicalizeUnder(attemptRoot, rendered)
	if err != nil {
		return "", fmt.Errorf("workflow: resolve output path %q: %w", template, err)
	}
	if !ok {
		return "", &direrrors.OutputPathUnsafeError{RunID: runID, StepID: stepID, Attempt: attempt, Key: key, Path: rendered}
	}
	// Extra glob-pattern guard: an escape attempt via "**" segments that
	// CanonicalizeUnder's lexical clean would already neutralize, kept as a
	// belt-and-braces check against doublestar-style traversal globs before
	// they are ever handed to a filesystem write.
	if matched, _ := doublestar.Match("**/../**", rendered); matched {
		return "", &direrrors.OutputPathUnsafeError{RunID: runID, StepID: stepID, Attempt: attempt, Key: key, Path: rendered}
	}
	return resolved, nil
}

func renderOutputTemplate(template string, runID, stepID string, attempt int) string {
	out := template
	out = strings.ReplaceAll(out, "{{workflow.run_id}}", runID)
	out = strings.ReplaceAll(out, "{{workflow.step_id}}", stepID)
	out = strings.ReplaceAll(out, "{{workflow.attempt}}", fmt.Sprintf("%d", attempt))
	return out
}
