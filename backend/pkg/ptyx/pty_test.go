package ptyx

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPty struct {
	closed int
}

func (p *stubPty) File() *os.File          { return nil }
func (p *stubPty) Resize(ws Winsize) error { return nil }
func (p *stubPty) In() io.WriteCloser      { return nil }
func (p *stubPty) Out() io.Reader          { return nil }
func (p *stubPty) Wait() error             { return nil }
func (p *stubPty) Close() error {
	p.closed++
	return nil
}

func TestEnv_OverridesAndAppends(t *testing.T) {
	base := []string{"HOME=/home/u", "TERM=xterm-256color", "PATH=/usr/bin"}
	got := Env(base, map[string]string{"TERM": "vt100", "LANG": "C.UTF-8"})

	assert.Equal(t, []string{"HOME=/home/u", "TERM=vt100", "PATH=/usr/bin", "LANG=C.UTF-8"}, got)
	// base must stay untouched
	assert.Equal(t, "TERM=xterm-256color", base[1])
}

func TestEnv_SkipsMalformedAndDeduplicates(t *testing.T) {
	got := Env([]string{"=C:", "BROKEN", "A=1", "A=2"}, nil)
	assert.Equal(t, []string{"A=2"}, got)
}

func TestDefaultShellAndTerm(t *testing.T) {
	if runtime.GOOS == "windows" {
		assert.Equal(t, "cmd.exe", DefaultShell())
		assert.Equal(t, "xterm-mono", DefaultTerm())
		return
	}
	assert.Contains(t, []string{"/bin/bash", "/bin/sh"}, DefaultShell())
	assert.Equal(t, "vt100", DefaultTerm())
}

func TestCommand_LoginFlag(t *testing.T) {
	cmd := Command("/bin/sh", true, "-c", "true")
	if runtime.GOOS == "windows" {
		assert.Equal(t, []string{"/bin/sh", "-c", "true"}, cmd.Args)
		return
	}
	assert.Equal(t, []string{"/bin/sh", "-l", "-c", "true"}, cmd.Args)

	cmd = Command("/bin/sh", false)
	assert.Equal(t, []string{"/bin/sh"}, cmd.Args)
}

func TestSpawn_AllocationFailure(t *testing.T) {
	allocErr := errors.New("out of ptys")
	var seen *exec.Cmd
	s := Spawner{Start: func(cmd *exec.Cmd, ws *Winsize) (Pty, error) {
		seen = cmd
		return nil, allocErr
	}}

	proc, err := s.Spawn(Options{Shell: "/bin/sh"})
	require.Error(t, err)
	assert.ErrorIs(t, err, allocErr)
	assert.Nil(t, proc)
	require.NotNil(t, seen)
	assert.Nil(t, seen.Process, "no child may be started when the pty cannot be allocated")
}

func TestSpawn_ClosesPtyWhenChildMissing(t *testing.T) {
	stub := &stubPty{}
	s := Spawner{Start: func(cmd *exec.Cmd, ws *Winsize) (Pty, error) {
		return stub, nil
	}}

	proc, err := s.Spawn(Options{Shell: "/bin/sh"})
	assert.ErrorIs(t, err, ErrNoProcess)
	assert.Nil(t, proc)
	assert.Equal(t, 1, stub.closed)
}

func TestSpawn_CommandShape(t *testing.T) {
	t.Setenv("PATH", "/opt/test/bin")
	dir := t.TempDir()

	var (
		seen *exec.Cmd
		size Winsize
	)
	s := Spawner{Start: func(cmd *exec.Cmd, ws *Winsize) (Pty, error) {
		seen = cmd
		size = *ws
		return nil, errors.New("stop here")
	}}
	_, err := s.Spawn(Options{Shell: "/bin/sh", Dir: dir, Term: "ptyx-test", Env: map[string]string{"FOO": "bar"}})
	require.Error(t, err)

	assert.Equal(t, dir, seen.Dir)
	assert.Contains(t, seen.Env, "TERM=ptyx-test")
	assert.Contains(t, seen.Env, "PATH=/opt/test/bin")
	assert.Contains(t, seen.Env, "FOO=bar")
	assert.Equal(t, DefaultSize, size)
	assert.NotEqual(t, "ptyx-test", os.Getenv("TERM"), "host environment must not change")
}
