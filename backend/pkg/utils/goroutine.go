package utils

import (
	"go.uber.org/zap"
)

// SafeGo 启动一个 goroutine 并在内部捕获 panic
func SafeGo(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer Recover(logger, name)
		fn()
	}()
}
