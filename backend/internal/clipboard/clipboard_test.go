package clipboard

import (
	"os"
	"runtime"
	"testing"

	"github.com/atotto/clipboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("touches the system clipboard")
	}
	if clipboard.Unsupported {
		_, err := System{}.Paste()
		assert.ErrorIs(t, err, ErrUnsupported)
		t.Skip("no clipboard utility installed")
	}
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		t.Skip("no display server")
	}

	var c System
	require.NoError(t, c.Copy("ptyterm clipboard test"))
	got, err := c.Paste()
	require.NoError(t, err)
	assert.Equal(t, "ptyterm clipboard test", got)
}
