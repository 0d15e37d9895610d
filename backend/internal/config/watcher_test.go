package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ptyterm", "config.json")

	var (
		mu   sync.Mutex
		seen []*Config
	)
	w, err := NewWatcher(context.Background(), path, nil, func(c *Config) {
		mu.Lock()
		seen = append(seen, c)
		mu.Unlock()
	})
	require.NoError(t, err)
	go w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"logLevel":"debug"}`), 0o600))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range seen {
			if c.LogLevel == "debug" {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	calls := make(chan *Config, 4)
	w, err := NewWatcher(context.Background(), path, nil, func(c *Config) { calls <- c })
	require.NoError(t, err)
	go w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o600))

	select {
	case <-calls:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(context.Background(), filepath.Join(t.TempDir(), "config.json"), nil, nil)
	require.NoError(t, err)
	w.Stop()
	w.Stop()
}
