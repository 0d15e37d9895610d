//go:build !windows

package terminal

import (
	"errors"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// readClosed reports the EIO a Linux PTY master returns once every slave
// descriptor is gone.
func readClosed(err error) bool {
	return errors.Is(err, syscall.EIO)
}

// terminateProcessGroup attempts to gracefully terminate a process group on Unix-like systems.
// It first sends SIGTERM, waits briefly, and then sends SIGKILL if the process group is still alive.
func terminateProcessGroup(pid int, logger *zap.Logger) {
	if pid <= 0 {
		return
	}

	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		// The leader is gone; its group may still hold background jobs.
		pgid = pid
	}

	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		logger.Debug("process group already gone", zap.Int("pgid", pgid), zap.Error(err))
		return
	}

	time.Sleep(250 * time.Millisecond)

	// signal 0 只检查进程组是否还存在
	if err := syscall.Kill(-pgid, 0); err != nil {
		logger.Debug("process group exited after SIGTERM", zap.Int("pgid", pgid))
		return
	}

	logger.Warn("process group ignored SIGTERM, sending SIGKILL", zap.Int("pgid", pgid))
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}
