package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyPolicy_MustReply(t *testing.T) {
	p, err := NewReplyPolicy()
	require.NoError(t, err)

	must, err := p.MustReply(true, false)
	require.NoError(t, err)
	assert.True(t, must)

	must, err = p.MustReply(false, true)
	require.NoError(t, err)
	assert.True(t, must)

	must, err = p.MustReply(false, false)
	require.NoError(t, err)
	assert.False(t, must)
}

func TestReplyPolicy_Override_NoResponseBecomesWorkflowStart(t *testing.T) {
	p, err := NewReplyPolicy()
	require.NoError(t, err)

	res := &SelectorResult{Action: ActionNoResponse, Reason: "nothing to do"}
	overridden, err := p.Override(res, true, false, "chat")
	require.NoError(t, err)
	assert.Equal(t, ActionWorkflowStart, overridden.Action)
	assert.Equal(t, "chat", overridden.SelectedWorkflow)
}

func TestReplyPolicy_Override_LeavesNoResponseWhenOptional(t *testing.T) {
	p, err := NewReplyPolicy()
	require.NoError(t, err)

	res := &SelectorResult{Action: ActionNoResponse}
	overridden, err := p.Override(res, false, false, "chat")
	require.NoError(t, err)
	assert.Equal(t, ActionNoResponse, overridden.Action)
}

func TestReplyPolicy_Override_LeavesNonNoResponseUntouched(t *testing.T) {
	p, err := NewReplyPolicy()
	require.NoError(t, err)

	res := &SelectorResult{Action: ActionWorkflowStart, SelectedWorkflow: "deploy"}
	overridden, err := p.Override(res, true, false, "chat")
	require.NoError(t, err)
	assert.Equal(t, "deploy", overridden.SelectedWorkflow)
}
