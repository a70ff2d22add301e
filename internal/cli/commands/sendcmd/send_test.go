package sendcmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCommand_RequiresSenderID(t *testing.T) {
	cmd := NewCommand()
	cmd.SetArgs([]string{"hello"})
	err := cmd.Execute()
	assert.Error(t, err)
}

func TestNewCommand_HasFlags(t *testing.T) {
	cmd := NewCommand()
	assert.NotNil(t, cmd.Flags().Lookup("sender-id"))
	assert.NotNil(t, cmd.Flags().Lookup("conversation-id"))
	assert.NotNil(t, cmd.Flags().Lookup("file"))
	assert.NotNil(t, cmd.Flags().Lookup("message-id"))
}
