// Package config loads terminal configuration.
//
// Sources, later ones winning:
//   - Default(): 120x16 PTY, 2000 byte reads (1024 and a 50ms startup delay
//     on Windows), 30ms poll interval, 2s write timeout
//   - JSON file, by default <UserConfigDir>/ptyterm/config.json
//   - PTYTERM_* environment variables (PTYTERM_SHELL, PTYTERM_TERM,
//     PTYTERM_COLS, PTYTERM_POLL_INTERVAL, PTYTERM_LOG_LEVEL, ...)
//
// Example Usage:
//
//	path, _ := config.DefaultPath()
//	cfg := config.LoadOrDefault(path)
//	w, err := config.NewWatcher(ctx, path, logger, func(c *config.Config) {
//		_ = log.SetLevel(c.LogLevel)
//	})
//	go w.Start()
package config
