//go:build !darwin

package platform

import "go.uber.org/zap"

// EnableKeyRepeat is a no-op outside macOS.
func EnableKeyRepeat(string, *zap.Logger) (bool, error) {
	return false, nil
}
