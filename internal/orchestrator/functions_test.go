package orchestrator

import (
	"context"
	"testing"

	direrrors "github.com/direclaw/direclaw/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionRegistry_DispatchUnknownFunction(t *testing.T) {
	reg := NewFunctionRegistry()
	_, err := reg.Dispatch(context.Background(), "nope.nope", nil)
	require.Error(t, err)
	var unknown *direrrors.UnknownFunctionError
	assert.ErrorAs(t, err, &unknown)
}

func TestFunctionRegistry_ValidatesRequiredArgs(t *testing.T) {
	reg := NewFunctionRegistry()
	reg.Register(FunctionDef{
		ID:   "echo.say",
		Args: map[string]ArgSpec{"text": {Type: "string", Required: true}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"text": args["text"]}, nil
		},
	})

	_, err := reg.Dispatch(context.Background(), "echo.say", map[string]any{})
	require.Error(t, err)

	out, err := reg.Dispatch(context.Background(), "echo.say", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out["text"])
}

func TestFunctionRegistry_RejectsWrongArgType(t *testing.T) {
	reg := NewFunctionRegistry()
	reg.Register(FunctionDef{
		ID:   "math.square",
		Args: map[string]ArgSpec{"n": {Type: "number", Required: true}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, nil
		},
	})
	_, err := reg.Dispatch(context.Background(), "math.square", map[string]any{"n": "not-a-number"})
	require.Error(t, err)
}

func TestFunctionRegistry_IDsAndHas(t *testing.T) {
	reg := NewFunctionRegistry()
	reg.Register(FunctionDef{ID: "a.b", Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) { return nil, nil }})
	assert.True(t, reg.Has("a.b"))
	assert.False(t, reg.Has("a.c"))
	assert.Equal(t, []string{"a.b"}, reg.IDs())
}
