package terminal

import (
	"errors"
	"io"
	"os"
	"time"

	"ptyterm/backend/pkg/utf8x"

	"go.uber.org/zap"
)

const bell = "\x07"

// drain is the only reader of the child's output. It stops when the
// session is cancelled, the child exits, or the PTY reports end of stream.
func (s *Session) drain() {
	defer close(s.done)
	defer s.finish()

	if s.startupDelay > 0 && !s.sleep(s.startupDelay) {
		return
	}

	buf := make([]byte, s.readBufferSize)
	out := s.proc.Out()
	for {
		if s.ctx.Err() != nil || !s.proc.Alive() {
			return
		}

		n, err := out.Read(buf)
		if n > 0 {
			s.render(s.reasm.Feed(buf[:n]))
		}
		if err != nil {
			if !isReadClosed(err) {
				s.logger.Warn("terminal read failed", zap.Error(err))
			}
			return
		}

		if !s.sleep(s.pollInterval) {
			return
		}
	}
}

// render pushes one reassembled chunk to the surface. Nothing is drawn once
// the session has been cancelled.
func (s *Session) render(out utf8x.Output) {
	if s.ctx.Err() != nil {
		return
	}
	if len(out.Raw) > 0 {
		s.surface.AppendRaw(out.Raw)
	}
	if out.Text != "" && out.Text != bell {
		s.surface.Append(out.Text)
	}
	s.waker.Wake()
}

// finish never touches the surface. An incomplete trailing character is
// left in the reassembler.
func (s *Session) finish() {
	s.logger.Debug("terminal drain stopped", zap.Int("pending", s.reasm.Pending()))
	if s.onExit != nil {
		s.onExit(s)
	}
}

// sleep waits d or until the session is cancelled, reporting whether the
// full duration elapsed.
func (s *Session) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func isReadClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) ||
		readClosed(err)
}
