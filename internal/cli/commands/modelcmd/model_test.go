package modelcmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCommand_ResolvesKnownAlias(t *testing.T) {
	cmd := NewCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"anthropic", "sonnet"})
	assert.NoError(t, cmd.Execute())
}

func TestNewCommand_RejectsUnknownProvider(t *testing.T) {
	cmd := NewCommand()
	cmd.SetArgs([]string{"bogus", "sonnet"})
	assert.Error(t, cmd.Execute())
}
