package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the config file whenever it changes on disk.
type Watcher struct {
	ctx      context.Context
	cancel   context.CancelFunc
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	onChange func(*Config)
	done     chan struct{}
	started  atomic.Bool
}

// NewWatcher watches the directory holding path, so editors that replace
// the file instead of writing it in place are still noticed.
func NewWatcher(parent context.Context, path string, logger *zap.Logger, onChange func(*Config)) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(parent)
	return &Watcher{
		ctx:      ctx,
		cancel:   cancel,
		path:     path,
		watcher:  fw,
		logger:   logger,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Start runs the watch loop until Stop is called or the parent context ends.
func (w *Watcher) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	defer close(w.done)
	defer w.watcher.Close()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.cancel()
	if w.started.CompareAndSwap(false, true) {
		// never started: nothing else owns the fsnotify watcher
		w.watcher.Close()
		close(w.done)
		return
	}
	<-w.done
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		// a half-written file fails to parse; the next write event retries
		w.logger.Warn("config reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Info("config reloaded", zap.String("path", w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
