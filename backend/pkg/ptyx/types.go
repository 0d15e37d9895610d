package ptyx

import (
	"io"
	"os"
)

// Pty is a cross-platform abstraction for a pseudo-terminal.
type Pty interface {
	// File returns the underlying PTY file. On Unix, this is the PTY master.
	// On Windows, this returns nil as there is no single file for I/O.
	File() *os.File

	Resize(ws Winsize) error

	In() io.WriteCloser

	Out() io.Reader

	// Wait blocks until the child attached to the slave side exits.
	Wait() error

	Close() error
}

// Winsize is a cross-platform terminal size definition.
// Width and Height are in pixels and may be zero.
type Winsize struct {
	Rows   uint16
	Cols   uint16
	Width  uint16
	Height uint16
}

// DefaultSize is the size a session starts with until the display reports
// its real dimensions.
var DefaultSize = Winsize{Rows: 16, Cols: 120}
