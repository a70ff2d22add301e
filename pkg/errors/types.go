package errors

import "fmt"

// QueueIoError represents a filesystem I/O failure against a queue directory
// (list, rename, write, delete). Recoverable at the worker: callers retry or
// quarantine, they never silently drop the message.
type QueueIoError struct {
	Path  string
	Kind  string // "read", "write", "rename", "stat", "mkdir"
	Cause error
}

func (e *QueueIoError) Error() string {
	return fmt.Sprintf("queue io error (%s) at %s: %v", e.Kind, e.Path, e.Cause)
}

func (e *QueueIoError) Unwrap() error { return e.Cause }

// PayloadInvalidError represents a queue message file that failed to parse
// or failed schema validation. Moves to queue/rejected/, never back to
// incoming/.
type PayloadInvalidError struct {
	Path   string
	Reason string
}

func (e *PayloadInvalidError) Error() string {
	return fmt.Sprintf("invalid queue payload at %s: %s", e.Path, e.Reason)
}

// ProviderErrorKind classifies why a provider CLI invocation failed.
type ProviderErrorKind string

const (
	ProviderErrorNonZeroExit  ProviderErrorKind = "nonZeroExit"
	ProviderErrorTimeout      ProviderErrorKind = "timeout"
	ProviderErrorEmptyOutput  ProviderErrorKind = "emptyOutput"
	ProviderErrorParseFailure ProviderErrorKind = "parseFailure"
)

// ProviderError represents a failed external provider CLI invocation.
// Attempt-fatal: the workflow engine applies its retry policy.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Detail   string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("provider %s failed (%s): %s", e.Provider, e.Kind, e.Detail)
	}
	return fmt.Sprintf("provider %s failed (%s)", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// EnvelopeInvalidError represents a missing, duplicated, or malformed
// [workflow_result] envelope in provider output. Attempt-fatal.
type EnvelopeInvalidError struct {
	RunID   string
	StepID  string
	Attempt int
	Reason  string
}

func (e *EnvelopeInvalidError) Error() string {
	return fmt.Sprintf("run %s step %s attempt %d: invalid envelope: %s", e.RunID, e.StepID, e.Attempt, e.Reason)
}

// OutputMissingError represents a step's declared output key absent from a
// validated envelope or output_files set. Attempt-fatal.
type OutputMissingError struct {
	RunID   string
	StepID  string
	Attempt int
	Key     string
}

func (e *OutputMissingError) Error() string {
	return fmt.Sprintf("run %s step %s attempt %d: missing declared output %q", e.RunID, e.StepID, e.Attempt, e.Key)
}

// OutputPathUnsafeError represents a declared output_files path that does
// not canonicalize inside its attempt root. Attempt-fatal; not written to
// security.log.
type OutputPathUnsafeError struct {
	RunID   string
	StepID  string
	Attempt int
	Key     string
	Path    string
}

func (e *OutputPathUnsafeError) Error() string {
	return fmt.Sprintf("run %s step %s attempt %d: output %q resolves outside attempt root: %s", e.RunID, e.StepID, e.Attempt, e.Key, e.Path)
}

// WorkspaceDeniedError represents a provider invocation whose working set
// fell outside an orchestrator's allowed roots. Run-fatal; security-logged;
// never leaves a created directory behind.
type WorkspaceDeniedError struct {
	OrchestratorID string
	Path           string
}

func (e *WorkspaceDeniedError) Error() string {
	return fmt.Sprintf("orchestrator %s denied workspace access to %s", e.OrchestratorID, e.Path)
}

// RunNotFoundError represents a reference to a workflowRunId with no
// corresponding RunRecord. Deterministic response, never a requeue loop.
type RunNotFoundError struct {
	RunID string
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("no such run: %s", e.RunID)
}

// UsageError represents a malformed CLI invocation caught before any
// config or state is touched: a missing positional argument, an unknown
// subcommand, a flag combination that can never be valid. Distinct from
// ConfigInvalidError, which covers a well-formed invocation against a
// bad document.
type UsageError struct {
	Command string
	Reason  string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

// UnknownWorkflowError represents a selector result naming a workflow not in
// the orchestrator's registry.
type UnknownWorkflowError struct {
	WorkflowID string
}

func (e *UnknownWorkflowError) Error() string {
	return fmt.Sprintf("unknown workflow: %s", e.WorkflowID)
}

// UnknownFunctionError represents a command_invoke naming a function id not
// in the function registry.
type UnknownFunctionError struct {
	FunctionID string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function: %s", e.FunctionID)
}

// ChannelNotFoundError represents a lookup against a channel registry for
// a channel id or channel_profile_id that was never registered.
type ChannelNotFoundError struct {
	ChannelID string
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("no such channel: %s", e.ChannelID)
}

// ConfigInvalidError represents a config parse or validation failure.
// Fatal for the requesting command.
type ConfigInvalidError struct {
	Key    string
	Reason string
	Cause  error
}

func (e *ConfigInvalidError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigInvalidError) Unwrap() error { return e.Cause }

// AlreadyRunningError represents an attempt to start the supervisor while
// the ownership lock is held by a live process.
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("supervisor already running (pid %d)", e.PID)
}

// StaleSupervisorError represents a runtime.json that claims "running"
// while the locking PID is dead. Self-healing path: the caller cleans the
// lock and reports "stale" rather than trusting the stored state.
type StaleSupervisorError struct {
	PID int
}

func (e *StaleSupervisorError) Error() string {
	return fmt.Sprintf("supervisor lock stale: pid %d is not running", e.PID)
}
