package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--listen", "127.0.0.1:0", "--shell", "/bin/sh", "--no-ui"}))

	listen, err := cmd.Flags().GetString("listen")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", listen)
	assert.True(t, cmd.Flags().Changed("shell"))
	assert.False(t, cmd.Flags().Changed("log-level"))
}

func TestRootCmd_RejectsBadConfig(t *testing.T) {
	t.Setenv("PTYTERM_COLS", "wide")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", ""})
	assert.Error(t, cmd.Execute())
}
