//go:build windows

package terminal

import (
	"errors"
	"os/exec"
	"strconv"
	"syscall"

	"go.uber.org/zap"
)

// readClosed reports the broken pipe ConPTY returns after the child exits.
func readClosed(err error) bool {
	return errors.Is(err, syscall.ERROR_BROKEN_PIPE)
}

// terminateProcessGroup terminates a process and its entire tree on Windows.
func terminateProcessGroup(pid int, logger *zap.Logger) {
	if pid <= 0 {
		return
	}

	// /T 连同子进程一起结束, /F 强制
	killCmd := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid))
	if out, err := killCmd.CombinedOutput(); err != nil {
		logger.Debug("taskkill failed", zap.Int("pid", pid), zap.ByteString("output", out), zap.Error(err))
	}
}
