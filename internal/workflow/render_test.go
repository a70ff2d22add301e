package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_InputsAndSteps(t *testing.T) {
	rc := &RenderContext{
		Inputs: map[string]any{"topic": "rockets"},
		StepOutputs: map[string]map[string]any{
			"plan": {"summary": "a plan"},
		},
		RunID:   "run-1",
		StepID:  "step1",
		Attempt: 2,
	}

	out, unknown, err := rc.Render("Topic: {{inputs.topic}}, prior: {{steps.plan.outputs.summary}}, attempt {{workflow.attempt}}")
	require.NoError(t, err)
	assert.Empty(t, unknown)
	assert.Equal(t, "Topic: rockets, prior: a plan, attempt 2", out)
}

func TestRender_MissingRequiredTokenFails(t *testing.T) {
	rc := &RenderContext{Inputs: map[string]any{}}
	_, _, err := rc.Render("{{inputs.missing}}")
	require.Error(t, err)
}

func TestRender_UnknownNamespaceReportedNotFatal(t *testing.T) {
	rc := &RenderContext{}
	out, unknown, err := rc.Render("hello {{bogus.thing}}")
	require.NoError(t, err)
	assert.Contains(t, unknown, "bogus.thing")
	assert.Equal(t, "hello {{bogus.thing}}", out)
}

func TestRender_WorkflowOutputPaths(t *testing.T) {
	rc := &RenderContext{
		RunID:       "run-1",
		OutputPaths: map[string]string{"plan": "/tmp/run-1/plan.md"},
	}
	out, _, err := rc.Render("see {{workflow.output_paths.plan}}")
	require.NoError(t, err)
	assert.Equal(t, "see /tmp/run-1/plan.md", out)
}
