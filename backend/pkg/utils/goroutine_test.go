package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSafeGo_RecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)

	done := make(chan struct{})
	SafeGo(logger, "boom", func() {
		defer close(done)
		panic("kaboom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}

	require.Eventually(t, func() bool { return logs.Len() == 1 }, time.Second, 5*time.Millisecond)
	entry := logs.All()[0]
	assert.Equal(t, "recovered from panic", entry.Message)
	assert.Equal(t, "boom", entry.ContextMap()["goroutine"])
	assert.Equal(t, "kaboom", entry.ContextMap()["panic"])
}

func TestSafeGo_NilLogger(t *testing.T) {
	done := make(chan struct{})
	SafeGo(nil, "nil-logger", func() {
		defer close(done)
		panic("ignored")
	})
	<-done
}
