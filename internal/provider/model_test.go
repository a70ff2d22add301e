package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveModel_AnthropicAliases(t *testing.T) {
	model, err := ResolveModel(Anthropic, "sonnet")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", model)

	model, err = ResolveModel(Anthropic, "opus")
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-6", model)
}

func TestResolveModel_AnthropicConcreteIDPassesThrough(t *testing.T) {
	model, err := ResolveModel(Anthropic, "claude-opus-4-6")
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-6", model)
}

func TestResolveModel_AnthropicUnknownAliasFails(t *testing.T) {
	_, err := ResolveModel(Anthropic, "haiku-9000")
	require.Error(t, err)
}

func TestResolveModel_OpenAIPassesThrough(t *testing.T) {
	model, err := ResolveModel(OpenAI, "gpt-5-codex")
	require.NoError(t, err)
	assert.Equal(t, "gpt-5-codex", model)
}

func TestResolveModel_OpenAIEmptyFails(t *testing.T) {
	_, err := ResolveModel(OpenAI, "")
	require.Error(t, err)
}

func TestResolveModel_UnknownProviderFails(t *testing.T) {
	_, err := ResolveModel(Provider("bogus"), "whatever")
	require.Error(t, err)
}
