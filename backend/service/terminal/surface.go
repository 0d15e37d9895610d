package terminal

import (
	"io"

	"ptyterm/backend/pkg/ptyx"
)

// Surface renders terminal output. The drain goroutine calls Append and
// AppendRaw, so implementations must be safe for concurrent use.
type Surface interface {
	// Append adds decoded text.
	Append(text string)
	// AppendRaw adds bytes that could not be decoded yet.
	AppendRaw(p []byte)
	Resize(x, y, w, h int)
	SelectionText() string
	// RequestPaste asks the surface to fetch the clipboard and deliver it
	// back as an EventPaste.
	RequestPaste()
	SetANSI(enabled bool)
}

// Waker tells the host UI loop that the surface has pending updates.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to Waker.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

type nopWaker struct{}

func (nopWaker) Wake() {}

// Clipboard is the system copy/paste buffer.
type Clipboard interface {
	Copy(text string) error
	Paste() (string, error)
}

// Process is a child attached to a terminal. *ptyx.Process and the remote
// SSH process both satisfy it.
type Process interface {
	Out() io.Reader
	In() io.Writer
	Resize(ws ptyx.Winsize) error
	Alive() bool
	Done() <-chan struct{}
	Pid() int
	Close() error
}

// Launcher starts the child for a new session.
type Launcher interface {
	Launch(size ptyx.Winsize) (Process, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(size ptyx.Winsize) (Process, error)

func (f LauncherFunc) Launch(size ptyx.Winsize) (Process, error) { return f(size) }
