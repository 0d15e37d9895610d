//go:build darwin

package platform

import (
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// EnableKeyRepeat turns off the press-and-hold accent popup for bundleID so
// held keys repeat inside the terminal. The global system setting is left
// alone. It reports whether the default was changed; a change only takes
// effect after the app restarts.
func EnableKeyRepeat(bundleID string, logger *zap.Logger) (bool, error) {
	return enableKeyRepeat(bundleID, logger, runDefaults)
}

func runDefaults(args ...string) (string, error) {
	out, err := exec.Command("defaults", args...).Output()
	return string(out), err
}

func enableKeyRepeat(bundleID string, logger *zap.Logger, run func(args ...string) (string, error)) (bool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// read fails when the key does not exist yet, which is fine
	out, err := run("read", bundleID, "ApplePressAndHoldEnabled")
	if err == nil && strings.TrimSpace(out) == "0" {
		logger.Debug("key repeat already enabled", zap.String("bundle", bundleID))
		return false, nil
	}

	if _, err := run("write", bundleID, "ApplePressAndHoldEnabled", "-bool", "false"); err != nil {
		return false, fmt.Errorf("defaults write %s ApplePressAndHoldEnabled: %w", bundleID, err)
	}
	logger.Info("enabled key repeat, restart required", zap.String("bundle", bundleID))
	return true, nil
}
