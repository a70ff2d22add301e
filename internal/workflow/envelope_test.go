package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope_Happy(t *testing.T) {
	msg := `some preamble text
[workflow_result]{"status":"complete","summary":"ok","reply":"pong"}[/workflow_result]
trailer`
	env, raw, err := ParseEnvelope("run-1", "step1", 1, msg, nil)
	require.NoError(t, err)
	assert.Equal(t, "complete", env.Status)
	assert.Equal(t, "pong", env.Reply)
	assert.Equal(t, "ok", raw["summary"])
}

func TestParseEnvelope_ZeroEnvelopesFails(t *testing.T) {
	_, _, err := ParseEnvelope("run-1", "step1", 1, "no envelope here", nil)
	require.Error(t, err)
}

func TestParseEnvelope_TwoEnvelopesFails(t *testing.T) {
	msg := `[workflow_result]{"status":"complete"}[/workflow_result]
[workflow_result]{"status":"complete"}[/workflow_result]`
	_, _, err := ParseEnvelope("run-1", "step1", 1, msg, nil)
	require.Error(t, err)
}

func TestParseEnvelope_BadStatusFails(t *testing.T) {
	msg := `[workflow_result]{"status":"bogus"}[/workflow_result]`
	_, _, err := ParseEnvelope("run-1", "step1", 1, msg, nil)
	require.Error(t, err)
}

func TestParseEnvelope_MissingDeclaredOutputFails(t *testing.T) {
	msg := `[workflow_result]{"status":"complete"}[/workflow_result]`
	_, _, err := ParseEnvelope("run-1", "step1", 1, msg, []string{"plan"})
	require.Error(t, err)
}

func TestParseEnvelope_OptionalDeclaredOutputMayBeMissing(t *testing.T) {
	msg := `[workflow_result]{"status":"complete"}[/workflow_result]`
	_, _, err := ParseEnvelope("run-1", "step1", 1, msg, []string{"plan?"})
	require.NoError(t, err)
}

func TestParseEnvelope_DecisionNormalizedLowercase(t *testing.T) {
	msg := `[workflow_result]{"status":"complete","decision":"APPROVE"}[/workflow_result]`
	env, _, err := ParseEnvelope("run-1", "step1", 1, msg, nil)
	require.NoError(t, err)
	assert.Equal(t, "approve", env.Decision)
}
