package versioncmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCommand_Use(t *testing.T) {
	assert.Equal(t, "version", NewCommand().Use)
}
