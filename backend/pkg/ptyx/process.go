package ptyx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// ErrNoProcess is returned when a PTY was allocated but no child was started.
var ErrNoProcess = errors.New("ptyx: child process was not started")

// StartFunc allocates a PTY of the given size and starts cmd attached to its
// slave side. StartWithSize is the platform implementation; tests replace it
// to inject allocation failures.
type StartFunc func(cmd *exec.Cmd, ws *Winsize) (Pty, error)

// Options describes the child to spawn.
type Options struct {
	// Shell defaults to DefaultShell().
	Shell string
	Args  []string
	Login bool
	// Dir defaults to the current working directory.
	Dir string
	// Term defaults to DefaultTerm().
	Term string
	// Env is applied on top of the inherited environment. TERM and PATH
	// are always set.
	Env  map[string]string
	Size Winsize
}

// Spawner starts shells attached to a PTY.
type Spawner struct {
	Start StartFunc
}

// Spawn starts a shell with the default Spawner.
func Spawn(opts Options) (*Process, error) {
	return Spawner{}.Spawn(opts)
}

// Spawn builds the shell command and starts it on a new PTY. Any failure
// leaves nothing behind: the PTY is closed if the child did not start.
// The host process environment is never modified; TERM and PATH are passed
// to the child only.
func (s Spawner) Spawn(opts Options) (*Process, error) {
	start := s.Start
	if start == nil {
		start = StartWithSize
	}

	shell := opts.Shell
	if shell == "" {
		shell = DefaultShell()
	}
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		dir = wd
	}
	term := opts.Term
	if term == "" {
		term = DefaultTerm()
	}
	size := opts.Size
	if size.Cols == 0 || size.Rows == 0 {
		size = DefaultSize
	}

	env := map[string]string{
		"TERM": term,
		"PATH": os.Getenv("PATH"),
	}
	for k, v := range opts.Env {
		env[k] = v
	}

	cmd := Command(shell, opts.Login, opts.Args...)
	cmd.Dir = dir
	cmd.Env = Env(os.Environ(), env)

	p, err := start(cmd, &size)
	if err != nil {
		return nil, fmt.Errorf("start %s on pty: %w", shell, err)
	}
	if cmd.Process == nil {
		p.Close()
		return nil, ErrNoProcess
	}
	return newProcess(p, cmd), nil
}

// Process is a child running on a PTY. Out is owned by a single reader; In
// may be shared but callers must serialize writes.
type Process struct {
	pty Pty
	cmd *exec.Cmd

	done    chan struct{}
	waitErr error

	closeOnce sync.Once
	closeErr  error
}

func newProcess(p Pty, cmd *exec.Cmd) *Process {
	proc := &Process{
		pty:  p,
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go func() {
		proc.waitErr = p.Wait()
		close(proc.done)
	}()
	return proc
}

func (p *Process) Out() io.Reader { return p.pty.Out() }

func (p *Process) In() io.Writer { return p.pty.In() }

func (p *Process) Resize(ws Winsize) error { return p.pty.Resize(ws) }

// Alive reports whether the child is still running. It never blocks.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done is closed once the child has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait blocks until the child exits and returns its wait error.
func (p *Process) Wait() error {
	<-p.done
	return p.waitErr
}

func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// ExitCode is only meaningful once Done is closed; it is -1 before that.
func (p *Process) ExitCode() int {
	if p.Alive() || p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Close releases the PTY master and kills the child if it is still running.
// It is safe to call more than once; the master is closed exactly once.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.pty.Close()
		if p.Alive() && p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
	})
	return p.closeErr
}
