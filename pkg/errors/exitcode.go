package errors

// Exit codes for the direclaw CLI, per the external interface contract:
// 0 success, 1 user/config error, 2 invalid invocation, 3 runtime failure.
const (
	ExitSuccess        = 0
	ExitUserError      = 1
	ExitInvalidInvoke  = 2
	ExitRuntimeFailure = 3
)

// ExitCode maps an error to the CLI exit code that should be returned for it.
// Unrecognized errors default to ExitRuntimeFailure rather than silently
// succeeding.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch {
	case As(err, new(*UsageError)):
		return ExitInvalidInvoke
	case As(err, new(*ConfigInvalidError)):
		return ExitUserError
	case As(err, new(*UnknownWorkflowError)), As(err, new(*UnknownFunctionError)), As(err, new(*RunNotFoundError)):
		return ExitUserError
	case As(err, new(*AlreadyRunningError)):
		return ExitUserError
	}
	return ExitRuntimeFailure
}

// QueueTransient reports whether err is a recoverable I/O failure the
// queue worker should keep requeuing on its normal cadence (disk
// contention, a rename racing a concurrent reader). Anything else,
// UnknownWorkflow, UnknownFunction, RunNotFound, PayloadInvalid, a bare
// config or logic error, is deterministic: requeuing it changes
// nothing, so the worker must bound its retries and quarantine per
// spec §5/§7 instead of requeuing forever.
func QueueTransient(err error) bool {
	return As(err, new(*QueueIoError))
}

// Retryable reports whether the engine's retry policy should apply to err
// (attempt-fatal kinds) as opposed to immediately terminal kinds.
func Retryable(err error) bool {
	switch {
	case As(err, new(*ProviderError)):
		return true
	case As(err, new(*EnvelopeInvalidError)):
		return true
	case As(err, new(*OutputMissingError)):
		return true
	case As(err, new(*OutputPathUnsafeError)):
		// Path-unsafe is attempt-fatal but never worth retrying: the template
		// is wrong, not transient.
		return false
	case As(err, new(*WorkspaceDeniedError)):
		return false
	}
	return false
}

// TerminalReason derives the RunRecord.terminalReason string for an error
// that ended a run.
func TerminalReason(err error) string {
	switch {
	case As(err, new(*ProviderError)):
		var pe *ProviderError
		As(err, &pe)
		switch pe.Kind {
		case ProviderErrorTimeout:
			return "step_timeout"
		default:
			return "provider_error"
		}
	case As(err, new(*EnvelopeInvalidError)):
		return "envelope_missing"
	case As(err, new(*OutputMissingError)):
		return "output_missing"
	case As(err, new(*OutputPathUnsafeError)):
		return "output_path_unsafe"
	case As(err, new(*WorkspaceDeniedError)):
		return "workspace_denied"
	}
	return "error"
}
