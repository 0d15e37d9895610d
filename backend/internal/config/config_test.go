package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path string, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, uint16(120), cfg.Cols)
	assert.Equal(t, uint16(16), cfg.Rows)
	assert.Equal(t, 30*time.Millisecond, cfg.PollInterval.Std())
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout.Std())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.ListenAddr, "websocket endpoint is opt-in")
	if runtime.GOOS == "windows" {
		assert.Equal(t, 1024, cfg.ReadBufferSize)
		assert.Equal(t, 50*time.Millisecond, cfg.StartupDelay.Std())
	} else {
		assert.Equal(t, 2000, cfg.ReadBufferSize)
		assert.Zero(t, cfg.StartupDelay)
	}
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, path, `{"shell":"/bin/zsh","cols":80,"pollInterval":"10ms","logLevel":"debug"}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/bin/zsh", cfg.Shell)
	assert.Equal(t, uint16(80), cfg.Cols)
	assert.Equal(t, uint16(16), cfg.Rows)
	assert.Equal(t, 10*time.Millisecond, cfg.PollInterval.Std())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, path, `{"shell":"/bin/zsh","rows":30}`)

	envVars := map[string]string{
		"PTYTERM_SHELL":         "/bin/sh",
		"PTYTERM_SHELL_ARGS":    "-i,-x",
		"PTYTERM_POLL_INTERVAL": "5ms",
		"PTYTERM_LOG_LEVEL":     "warn",
		"PTYTERM_TERM":          "xterm-256color",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/bin/sh", cfg.Shell)
	assert.Equal(t, []string{"-i", "-x"}, cfg.ShellArgs)
	assert.Equal(t, 5*time.Millisecond, cfg.PollInterval.Std())
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "xterm-256color", cfg.Term)
	assert.Equal(t, uint16(30), cfg.Rows, "file value survives when env is unset")
}

func TestLoad_HostTermIsIgnored(t *testing.T) {
	t.Setenv("TERM", "screen")
	t.Setenv("SHELL", "/bin/fish")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Term)
	assert.Empty(t, cfg.Shell)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "bad json", body: `{"cols":`},
		{name: "zero rows", body: `{"rows":0}`},
		{name: "bad duration", body: `{"pollInterval":"soon"}`},
		{name: "bad env", body: `{}`, env: map[string]string{"PTYTERM_COLS": "wide"}},
		{name: "negative pending", body: `{"maxPending":-1}`},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(dir, "c"+string(rune('a'+i))+".json")
			writeConfig(t, path, tt.body)

			_, err := Load(path)
			assert.Error(t, err)
			assert.NotNil(t, LoadOrDefault(path))
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		D Duration `json:"d"`
	}{D: Duration(1500 * time.Millisecond)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"1.5s"}`, string(data))
}
