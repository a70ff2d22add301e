package authcmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCommand_HasSyncSubcommand(t *testing.T) {
	cmd := NewCommand()
	sync, _, err := cmd.Find([]string{"sync"})
	assert.NoError(t, err)
	assert.Equal(t, "sync", sync.Use)
}

func TestSync_FailsWithoutConfig(t *testing.T) {
	cmd := newSyncCommand()
	err := cmd.RunE(cmd, nil)
	assert.Error(t, err)
}
