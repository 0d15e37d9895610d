//go:build !windows

package terminal

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSession_RealShellEcho(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a shell")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	surface := &fakeSurface{}
	s, err := NewSession(Options{
		ID:       "real",
		Surface:  surface,
		Launcher: &LocalLauncher{Shell: "/bin/sh"},
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send([]byte(`echo -e "\033[1;31mHELLO"`+"\n")))
	assert.Eventually(t, func() bool {
		return strings.Contains(surface.text(), "\x1b[1;31mHELLO")
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, s.Send([]byte("exit\n")))
	waitDone(t, s, 5*time.Second)
	assert.False(t, s.Alive())
}
