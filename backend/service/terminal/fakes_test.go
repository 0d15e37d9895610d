package terminal

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ptyterm/backend/pkg/ptyx"

	"github.com/stretchr/testify/require"
)

// fakeProcess is a child whose output is fed through a pipe by the test.
type fakeProcess struct {
	outR *io.PipeReader
	outW *io.PipeWriter

	mu       sync.Mutex
	in       bytes.Buffer
	writeErr error
	block    chan struct{}
	resizes  []ptyx.Winsize

	reads    atomic.Int32
	closed   atomic.Bool
	done     chan struct{}
	exitOnce sync.Once
}

func newFakeProcess() *fakeProcess {
	r, w := io.Pipe()
	return &fakeProcess{outR: r, outW: w, done: make(chan struct{})}
}

func (p *fakeProcess) Out() io.Reader { return readCounter{p} }

type readCounter struct{ p *fakeProcess }

func (r readCounter) Read(b []byte) (int, error) {
	r.p.reads.Add(1)
	return r.p.outR.Read(b)
}

func (p *fakeProcess) In() io.Writer { return inWriter{p} }

type inWriter struct{ p *fakeProcess }

func (w inWriter) Write(b []byte) (int, error) {
	if w.p.block != nil {
		<-w.p.block
	}
	w.p.mu.Lock()
	defer w.p.mu.Unlock()
	if w.p.writeErr != nil {
		return 0, w.p.writeErr
	}
	return w.p.in.Write(b)
}

func (p *fakeProcess) Resize(ws ptyx.Winsize) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resizes = append(p.resizes, ws)
	return nil
}

func (p *fakeProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Pid() int { return 4242 }

func (p *fakeProcess) Close() error {
	p.closed.Store(true)
	p.outR.Close()
	p.exit()
	return nil
}

func (p *fakeProcess) exit() {
	p.exitOnce.Do(func() { close(p.done) })
}

// emit writes one chunk of child output; the pipe hands it to exactly one
// Read on the drain goroutine.
func (p *fakeProcess) emit(t *testing.T, s string) {
	t.Helper()
	_, err := p.outW.Write([]byte(s))
	require.NoError(t, err)
}

func (p *fakeProcess) input() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.in.String()
}

func (p *fakeProcess) lastResize() ptyx.Winsize {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.resizes) == 0 {
		return ptyx.Winsize{}
	}
	return p.resizes[len(p.resizes)-1]
}

type fakeSurface struct {
	mu            sync.Mutex
	all           strings.Builder
	appends       []string
	raw           [][]byte
	resizes       [][4]int
	selection     string
	pasteRequests int
	ansi          bool
}

func (s *fakeSurface) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends = append(s.appends, text)
	s.all.WriteString(text)
}

func (s *fakeSurface) AppendRaw(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = append(s.raw, append([]byte(nil), p...))
	s.all.Write(p)
}

func (s *fakeSurface) Resize(x, y, w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resizes = append(s.resizes, [4]int{x, y, w, h})
}

func (s *fakeSurface) SelectionText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

func (s *fakeSurface) RequestPaste() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pasteRequests++
}

func (s *fakeSurface) SetANSI(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ansi = enabled
}

func (s *fakeSurface) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all.String()
}

func (s *fakeSurface) appended() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.appends...)
}

func (s *fakeSurface) mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appends) + len(s.raw)
}

type fakeClipboard struct {
	mu      sync.Mutex
	content string
	err     error
}

func (c *fakeClipboard) Copy(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.content = text
	return nil
}

func (c *fakeClipboard) Paste() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, c.err
}

func launcherFor(p *fakeProcess) Launcher {
	return LauncherFunc(func(ptyx.Winsize) (Process, error) { return p, nil })
}

var errLaunch = errors.New("pty allocation failed")

const defaultWait = time.Second

func waitDone(t *testing.T, s *Session, within time.Duration) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(within):
		t.Fatalf("drain loop still running after %s", within)
	}
}
