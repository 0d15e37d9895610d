//go:build windows

package ptyx

import (
	"io"
	"os"
	"os/exec"

	gopty "github.com/aymanbagabas/go-pty"
)

type winPty struct {
	p   gopty.Pty
	in  io.WriteCloser
	out io.Reader
	c   *gopty.Cmd
}

func (p *winPty) File() *os.File {
	// On Windows, there is no single file descriptor that can be used for both
	// reading and writing like on Unix. The I/O is handled through separate pipes.
	return nil
}

func (p *winPty) In() io.WriteCloser { return p.in }

func (p *winPty) Out() io.Reader { return p.out }

func (p *winPty) Wait() error { return p.c.Wait() }

func (p *winPty) Close() error { return p.p.Close() }

// ConPTY has no notion of pixel size.
func (p *winPty) Resize(ws Winsize) error {
	return p.p.Resize(int(ws.Cols), int(ws.Rows))
}

// StartWithSize starts cmd inside a ConPTY. cmd is only used as a template:
// its path, arguments, directory and environment are copied to the ConPTY
// command, and cmd.Process is filled in on success.
func StartWithSize(cmd *exec.Cmd, ws *Winsize) (Pty, error) {
	p, err := gopty.New()
	if err != nil {
		return nil, err
	}
	if ws != nil {
		if err := p.Resize(int(ws.Cols), int(ws.Rows)); err != nil {
			p.Close()
			return nil, err
		}
	}
	c := p.Command(cmd.Path, cmd.Args[1:]...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	if err := c.Start(); err != nil {
		p.Close()
		return nil, err
	}
	cmd.Process = c.Process

	var in io.WriteCloser
	var out io.Reader

	if cp, ok := any(p).(interface {
		InputPipe() *os.File
		OutputPipe() *os.File
	}); ok {
		in = cp.InputPipe()
		out = cp.OutputPipe()
	} else {
		in = struct {
			io.Writer
			io.Closer
		}{
			Writer: p,
			Closer: p,
		}
		out = p
	}

	return &winPty{c: c, in: in, out: out, p: p}, nil
}
