package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(Config{Level: "info", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Info("session started", zap.String("session", "abc"))
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"session started"`)
	assert.Contains(t, string(data), `"session":"abc"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestSetLevel(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, logger.Level())

	require.NoError(t, logger.SetLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, logger.Level())
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, logger.SetLevel("nope"))
	assert.Equal(t, zapcore.DebugLevel, logger.Level())
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Info("ignored")
	assert.NoError(t, logger.SetLevel("warn"))
}
