package provider

import (
	"regexp"
	"strings"
)

// InvocationLog is the sanitized record persisted as invocation.json for
// every provider invocation, per spec §4.6.
type InvocationLog struct {
	Binary      string   `json:"binary"`
	Argv        []string `json:"argv"`
	Cwd         string   `json:"cwd"`
	Model       string   `json:"model"`
	ExitCode    int      `json:"exitCode"`
	TimedOut    bool     `json:"timedOut"`
	TimeoutMs   int      `json:"timeoutMs"`
	DurationMs  int64    `json:"durationMs"`
	PromptPath  string   `json:"promptPath"`
	ContextPath string   `json:"contextPath"`
}

// sanitizeArgv copies argv with any instruction text left as-is (it is
// attempt-scoped prompt/context references, not a secret) but drops
// anything that looks like an inline credential (a flag value containing
// "token", "--key", or "secret" immediately preceding it).
func sanitizeArgv(argv []string) []string {
	out := make([]string, len(argv))
	redactNext := false
	for i, a := range argv {
		if redactNext {
			out[i] = "[REDACTED]"
			redactNext = false
			continue
		}
		out[i] = a
		lower := strings.ToLower(a)
		if strings.Contains(lower, "token") || strings.Contains(lower, "--key") || strings.Contains(lower, "secret") {
			redactNext = true
		}
	}
	return out
}

// Patterns for sensitive information to strip from provider stderr before
// it is attached to a ProviderError or logged.
var (
	pathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/Users/[^/\s]+`),
		regexp.MustCompile(`/home/[^/\s]+`),
	}
	ipPattern = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)
)

// sanitizeError removes home-directory paths and IP addresses from
// provider stderr output before it is surfaced in an error or log line.
func sanitizeError(msg string) string {
	result := msg
	for _, p := range pathPatterns {
		result = p.ReplaceAllString(result, "[PATH]")
	}
	result = ipPattern.ReplaceAllString(result, "[IP]")
	return strings.TrimSpace(result)
}
