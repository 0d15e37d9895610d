package backend

import (
	"context"
	"sync"
	"testing"

	"ptyterm/backend/service/terminal"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestOnBeforeClose_Quitting(t *testing.T) {
	a := NewApp(false, true)
	a.Terminal = terminal.NewService(nil, zap.NewNop())
	defer a.Terminal.Shutdown()

	assert.False(t, a.OnBeforeClose(context.Background()), "no terminals, nothing to confirm")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.isQuitting.Store(true)
	}()
	wg.Wait()
	assert.False(t, a.OnBeforeClose(context.Background()))
}

func TestOnBeforeClose_NotMacOS(t *testing.T) {
	a := NewApp(false, false)
	assert.False(t, a.OnBeforeClose(context.Background()))
}
