package provider

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// Invocation describes one provider CLI invocation.
type Invocation struct {
	Provider       Provider
	Model          string // alias or concrete id; resolved internally
	PromptPath     string
	ContextPath    string
	Cwd            string
	ResetFlagPath  string // if present on disk, omit resume/-c and delete after success
	TimeoutSeconds int
}

// Result is the provider runner's output: the extracted assistant
// message plus the metadata persisted to invocation.json.
type Result struct {
	Message  string
	Metadata InvocationLog
}

// RunnerFunc matches Run's signature; callers that need to substitute a
// fake provider in tests (the selector, the diagnostics investigator)
// depend on this instead of the concrete Run function.
type RunnerFunc func(ctx context.Context, inv Invocation) (*Result, error)

// Run resolves the model alias, constructs the CLI command per spec
// §4.6, executes it with a wall-clock deadline, extracts the final
// assistant message, and returns both. Once the process has been spawned
// the invocation log is populated even on failure, so the caller can
// persist invocation.json regardless of outcome; a model alias that fails
// to resolve returns a nil Result before anything is spawned.
func Run(ctx context.Context, inv Invocation) (*Result, error) {
	model, err := ResolveModel(inv.Provider, inv.Model)
	if err != nil {
		return nil, err
	}

	resetting := false
	if inv.ResetFlagPath != "" {
		if _, statErr := os.Stat(inv.ResetFlagPath); statErr == nil {
			resetting = true
		}
	}

	args, bin := buildArgs(inv.Provider, model, inv.PromptPath, inv.ContextPath, resetting)

	timeout := time.Duration(inv.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 0
	}
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, bin, args...)
	cmd.Dir = inv.Cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	timedOut := runCtx.Err() == context.DeadlineExceeded

	logEntry := InvocationLog{
		Binary:      bin,
		Argv:        sanitizeArgv(args),
		Cwd:         inv.Cwd,
		Model:       model,
		TimeoutMs:   inv.TimeoutSeconds * 1000,
		DurationMs:  duration.Milliseconds(),
		TimedOut:    timedOut,
		PromptPath:  inv.PromptPath,
		ContextPath: inv.ContextPath,
	}

	if runErr != nil {
		logEntry.ExitCode = exitCodeOf(runErr)
		kind := direrrors.ProviderErrorNonZeroExit
		if timedOut {
			kind = direrrors.ProviderErrorTimeout
		}
		return &Result{Metadata: logEntry}, &direrrors.ProviderError{
			Provider: string(inv.Provider),
			Kind:     kind,
			Detail:   sanitizeError(stderr.String()),
			Cause:    runErr,
		}
	}
	logEntry.ExitCode = 0

	message, extractErr := extract(inv.Provider, stdout.Bytes())
	if extractErr != nil {
		return &Result{Metadata: logEntry}, extractErr
	}

	if resetting {
		_ = os.Remove(inv.ResetFlagPath)
	}

	return &Result{Message: message, Metadata: logEntry}, nil
}

func buildArgs(p Provider, model, promptPath, contextPath string, resetting bool) ([]string, string) {
	instruction := instructionText(promptPath, contextPath)

	switch p {
	case Anthropic:
		args := []string{"--dangerously-skip-permissions"}
		if model != "" {
			args = append(args, "--model", model)
		}
		if !resetting {
			args = append(args, "-c")
		}
		args = append(args, "-p", instruction)
		return args, "claude"
	case OpenAI:
		args := []string{"exec"}
		if !resetting {
			args = append(args, "resume", "--last")
		}
		if model != "" {
			args = append(args, "--model", model)
		}
		args = append(args, "--skip-git-repo-check", "--dangerously-bypass-approvals-and-sandbox", "--json", instruction)
		return args, "codex"
	default:
		return nil, ""
	}
}

// instructionText points the CLI at the two flat files the attempt
// renderer produced, per spec §4.8.
func instructionText(promptPath, contextPath string) string {
	return "Read the instructions in " + filepath.Base(promptPath) + " and the context in " + filepath.Base(contextPath) + " in this working directory, then proceed."
}

func exitCodeOf(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
