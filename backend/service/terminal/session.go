package terminal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ptyterm/backend/internal/types"
	"ptyterm/backend/pkg/ptyx"
	"ptyterm/backend/pkg/utf8x"
	"ptyterm/backend/pkg/utils"

	"go.uber.org/zap"
)

var (
	// ErrSessionClosed is returned when writing to a session whose child
	// has exited or which has been closed.
	ErrSessionClosed = errors.New("terminal session is closed")
	// ErrWriteTimeout is returned when the write lock could not be taken
	// within Options.WriteTimeout.
	ErrWriteTimeout = errors.New("timed out waiting for terminal write lock")
	// ErrSessionNotFound is returned by Service lookups.
	ErrSessionNotFound = errors.New("terminal session not found")
)

const (
	defaultReadBufferSize = 2000
	defaultPollInterval   = 30 * time.Millisecond
	defaultCellWidth      = 8
	defaultCellHeight     = 16
)

// Options configures a Session. Surface and Launcher are required.
type Options struct {
	ID        string
	Surface   Surface
	Waker     Waker
	Clipboard Clipboard
	Launcher  Launcher
	Size      ptyx.Winsize

	ReadBufferSize int
	PollInterval   time.Duration
	// StartupDelay is waited once before the first read.
	StartupDelay time.Duration
	WriteTimeout time.Duration
	MaxPending   int

	// CellWidth and CellHeight turn a surface size in pixels into PTY
	// columns and rows.
	CellWidth  int
	CellHeight int

	Logger *zap.Logger

	// OnExit runs on the drain goroutine once it has stopped.
	OnExit func(*Session)
	// OnBroken runs the first time a write to the child fails.
	OnBroken func(*Session, error)
}

// Session bridges one child process to one display surface.
type Session struct {
	id        string
	proc      Process
	surface   Surface
	waker     Waker
	clipboard Clipboard
	writer    *lockedWriter
	reasm     *utf8x.Reassembler
	logger    *zap.Logger

	readBufferSize int
	pollInterval   time.Duration
	startupDelay   time.Duration
	cellWidth      int
	cellHeight     int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	mu     sync.Mutex
	size   ptyx.Winsize
	broken error

	onExit   func(*Session)
	onBroken func(*Session, error)
}

// NewSession launches the child, switches the surface to ANSI passthrough
// and starts draining output. If the launch fails nothing is left running.
func NewSession(opts Options) (*Session, error) {
	if opts.Surface == nil {
		return nil, errors.New("terminal: surface is required")
	}
	if opts.Launcher == nil {
		return nil, errors.New("terminal: launcher is required")
	}

	s := &Session{
		id:             opts.ID,
		surface:        opts.Surface,
		waker:          opts.Waker,
		clipboard:      opts.Clipboard,
		logger:         opts.Logger,
		readBufferSize: opts.ReadBufferSize,
		pollInterval:   opts.PollInterval,
		startupDelay:   opts.StartupDelay,
		cellWidth:      opts.CellWidth,
		cellHeight:     opts.CellHeight,
		size:           opts.Size,
		done:           make(chan struct{}),
		onExit:         opts.OnExit,
		onBroken:       opts.OnBroken,
	}
	if s.waker == nil {
		s.waker = nopWaker{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	if s.readBufferSize <= 0 {
		s.readBufferSize = defaultReadBufferSize
	}
	if s.pollInterval <= 0 {
		s.pollInterval = defaultPollInterval
	}
	if s.cellWidth <= 0 {
		s.cellWidth = defaultCellWidth
	}
	if s.cellHeight <= 0 {
		s.cellHeight = defaultCellHeight
	}
	if s.size.Cols == 0 || s.size.Rows == 0 {
		s.size = ptyx.DefaultSize
	}
	maxPending := opts.MaxPending
	if maxPending == 0 {
		maxPending = utf8x.DefaultMaxPending
	}
	s.reasm = utf8x.New(maxPending)

	proc, err := opts.Launcher.Launch(s.size)
	if err != nil {
		return nil, fmt.Errorf("launch terminal: %w", err)
	}
	s.proc = proc
	s.writer = newLockedWriter(proc.In(), opts.WriteTimeout)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.surface.SetANSI(true)

	utils.SafeGo(s.logger, "terminal-drain", s.drain)
	utils.SafeGo(s.logger, "terminal-exit", s.watchExit)

	s.logger.Info("terminal session started",
		zap.Int("pid", proc.Pid()),
		zap.Uint16("cols", s.size.Cols),
		zap.Uint16("rows", s.size.Rows),
	)
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Pid() int { return s.proc.Pid() }

// Size returns the current PTY size.
func (s *Session) Size() ptyx.Winsize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Alive reports whether the child is running and the session is open.
func (s *Session) Alive() bool {
	return !s.closed.Load() && s.proc.Alive()
}

// Done is closed when the drain loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Send writes p to the child. Errors are returned to the caller; a failed
// write also marks the session broken but leaves it open.
func (s *Session) Send(p []byte) error {
	if !s.Alive() {
		return ErrSessionClosed
	}
	if len(p) == 0 {
		return nil
	}
	if _, err := s.writer.Write(p); err != nil {
		if errors.Is(err, ErrWriteTimeout) {
			return err
		}
		err = fmt.Errorf("write to terminal: %w", err)
		s.markBroken(err)
		return err
	}
	return nil
}

// Broken returns the first write failure, wrapped in a
// *types.SessionBrokenError, or nil.
func (s *Session) Broken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken == nil {
		return nil
	}
	return &types.SessionBrokenError{SessionID: s.id, Err: s.broken}
}

func (s *Session) markBroken(err error) {
	s.mu.Lock()
	first := s.broken == nil
	if first {
		s.broken = err
	}
	s.mu.Unlock()
	if !first {
		return
	}
	s.logger.Error("terminal session broken", zap.Error(err))
	if s.onBroken != nil {
		s.onBroken(s, s.Broken())
	}
}

// Resize resizes the surface and the PTY behind it. w and h are in pixels.
func (s *Session) Resize(x, y, w, h int) error {
	s.surface.Resize(x, y, w, h)
	cols := max(w/s.cellWidth, 1)
	rows := max(h/s.cellHeight, 1)
	return s.setSize(ptyx.Winsize{
		Cols:   clampUint16(cols),
		Rows:   clampUint16(rows),
		Width:  clampUint16(w),
		Height: clampUint16(h),
	})
}

// SetSize resizes the PTY in character cells.
func (s *Session) SetSize(cols, rows uint16) error {
	if cols == 0 || rows == 0 {
		return fmt.Errorf("invalid terminal size %dx%d", cols, rows)
	}
	return s.setSize(ptyx.Winsize{Cols: cols, Rows: rows})
}

func (s *Session) setSize(ws ptyx.Winsize) error {
	if !s.Alive() {
		return ErrSessionClosed
	}
	if err := s.proc.Resize(ws); err != nil {
		return fmt.Errorf("resize terminal to %dx%d: %w", ws.Cols, ws.Rows, err)
	}
	s.mu.Lock()
	s.size = ws
	s.mu.Unlock()
	s.logger.Debug("terminal resized", zap.Uint16("cols", ws.Cols), zap.Uint16("rows", ws.Rows))
	return nil
}

// Close stops the drain loop and releases the child. It does not wait for
// the drain goroutine; use Done for that.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.closeErr = s.proc.Close()
		s.logger.Info("terminal session closed")
	})
	return s.closeErr
}

// watchExit releases the PTY once the child is gone so a drain goroutine
// blocked in Read wakes up even if a grandchild still holds the slave.
func (s *Session) watchExit() {
	select {
	case <-s.proc.Done():
		s.logger.Info("terminal child exited", zap.Int("pid", s.proc.Pid()))
		s.cancel()
		if err := s.proc.Close(); err != nil {
			s.logger.Debug("close after exit", zap.Error(err))
		}
	case <-s.ctx.Done():
	}
}

func clampUint16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
