package terminal

import (
	"io"
	"time"
)

// lockedWriter serializes writes to the PTY. Acquiring the lock gives up
// after timeout so a child that stopped reading its input cannot wedge the
// UI goroutine forever. A zero timeout waits indefinitely.
type lockedWriter struct {
	w       io.Writer
	sem     chan struct{}
	timeout time.Duration
}

func newLockedWriter(w io.Writer, timeout time.Duration) *lockedWriter {
	return &lockedWriter{
		w:       w,
		sem:     make(chan struct{}, 1),
		timeout: timeout,
	}
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	var expired <-chan time.Time
	if l.timeout > 0 {
		t := time.NewTimer(l.timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case l.sem <- struct{}{}:
	case <-expired:
		return 0, ErrWriteTimeout
	}
	defer func() { <-l.sem }()

	return l.w.Write(p)
}
