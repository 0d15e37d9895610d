//go:build !windows

package ptyx

import (
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

type unixPty struct {
	f *os.File
	c *exec.Cmd
}

func (p *unixPty) File() *os.File { return p.f }

func (p *unixPty) In() io.WriteCloser { return p.f }

func (p *unixPty) Out() io.Reader { return p.f }

func (p *unixPty) Wait() error { return p.c.Wait() }

func (p *unixPty) Close() error { return p.f.Close() }

func (p *unixPty) Resize(ws Winsize) error {
	return pty.Setsize(p.f, &pty.Winsize{
		Rows: ws.Rows,
		Cols: ws.Cols,
		X:    ws.Width,
		Y:    ws.Height,
	})
}

// StartWithSize creates a PTY of the given size and starts cmd on its slave
// side. The slave is closed in the parent once the child owns it, so reads
// on the master fail with EIO after the child exits.
func StartWithSize(cmd *exec.Cmd, ws *Winsize) (Pty, error) {
	var err error
	var f *os.File
	if ws == nil {
		f, err = pty.Start(cmd)
	} else {
		f, err = pty.StartWithSize(cmd, &pty.Winsize{
			Rows: ws.Rows,
			Cols: ws.Cols,
			X:    ws.Width,
			Y:    ws.Height,
		})
	}
	if err != nil {
		return nil, err
	}
	return &unixPty{f: f, c: cmd}, nil
}
