package utils

import (
	"go.uber.org/zap"
)

// Recover 捕获 panic 并记录错误日志，必须直接在 defer 中调用
func Recover(logger *zap.Logger, name string) {
	if r := recover(); r != nil {
		if logger == nil {
			logger = zap.NewNop()
		}
		logger.Error("recovered from panic",
			zap.String("goroutine", name),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
	}
}
