package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"ptyterm/backend/pkg/ptyx"
	"ptyterm/backend/pkg/utils"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

const (
	// KeepAliveInterval is the interval for sending SSH keep-alive messages.
	KeepAliveInterval = 15 * time.Second
	// keepAliveRequestTimeout must be shorter than KeepAliveInterval.
	keepAliveRequestTimeout = 10 * time.Second

	defaultDialTimeout = 10 * time.Second
)

// DialFunc opens the SSH client connection. ssh.Dial by default.
type DialFunc func(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)

// Launcher starts interactive shells on remote hosts.
type Launcher struct {
	// KnownHostsPath defaults to ~/.ssh/known_hosts and is created if missing.
	KnownHostsPath string
	// AcceptNewHosts records keys of hosts not yet in known_hosts.
	AcceptNewHosts bool
	// InsecureIgnoreHostKey skips host key verification entirely. 仅在用户确认指纹后使用
	InsecureIgnoreHostKey bool
	// Term defaults to ptyx.DefaultTerm().
	Term        string
	DialTimeout time.Duration

	Secrets SecretGetter
	Dial    DialFunc
	Logger  *zap.Logger
}

// NewLauncher returns a Launcher that reads saved passwords from the
// system keyring.
func NewLauncher(logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		Secrets: keyring.Get,
		Dial:    ssh.Dial,
		Logger:  logger,
	}
}

// ClientConfig builds the ssh.ClientConfig for t.
func (l *Launcher) ClientConfig(t Target) (*ssh.ClientConfig, error) {
	if t.HostName == "" {
		return nil, errors.New("remote: host name is required")
	}
	if t.User == "" {
		return nil, fmt.Errorf("remote: user is required for %s", t.Name())
	}

	auth, err := AuthMethods(t, l.Secrets)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:    t.User,
		Auth:    auth,
		Timeout: l.DialTimeout,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDialTimeout
	}

	if l.InsecureIgnoreHostKey {
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey()
		return cfg, nil
	}
	path := l.KnownHostsPath
	if path == "" {
		if path, err = DefaultKnownHostsPath(); err != nil {
			return nil, err
		}
	}
	cb, algos, err := hostKeyCallback(t, path, l.AcceptNewHosts || t.TrustHostKey)
	if err != nil {
		return nil, err
	}
	cfg.HostKeyCallback = cb
	cfg.HostKeyAlgorithms = algos
	return cfg, nil
}

// Launch dials t and starts a login shell on a remote PTY of the given
// size. Everything opened so far is closed again on failure.
func (l *Launcher) Launch(t Target, size ptyx.Winsize) (*Process, error) {
	cfg, err := l.ClientConfig(t)
	if err != nil {
		return nil, err
	}
	dial := l.Dial
	if dial == nil {
		dial = ssh.Dial
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("host", t.Name()))

	client, err := dial("tcp", t.Address(), cfg)
	if err != nil {
		return nil, fmt.Errorf("SSH dial to %s failed: %w", t.Name(), err)
	}

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create SSH session: %w", err)
	}

	term := l.Term
	if term == "" {
		term = ptyx.DefaultTerm()
	}
	if size.Cols == 0 || size.Rows == 0 {
		size = ptyx.DefaultSize
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty(term, int(size.Rows), int(size.Cols), modes); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("failed to request PTY: %w", err)
	}

	in, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, err
	}
	out, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, err
	}

	if err := sess.Shell(); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	logger.Info("remote shell started", zap.String("addr", t.Address()), zap.String("term", term))
	return newProcess(client, sess, in, out, logger), nil
}

// Process is a remote shell attached to an SSH PTY.
type Process struct {
	client  *ssh.Client
	session *ssh.Session
	in      io.WriteCloser
	out     io.Reader
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func newProcess(client *ssh.Client, sess *ssh.Session, in io.WriteCloser, out io.Reader, logger *zap.Logger) *Process {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Process{
		client:  client,
		session: sess,
		in:      in,
		out:     out,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	utils.SafeGo(logger, "ssh-wait", func() {
		err := sess.Wait()
		logger.Info("remote shell exited", zap.Error(err))
		close(p.done)
		cancel()
	})
	utils.SafeGo(logger, "ssh-keepalive", func() { keepAlive(ctx, client, logger) })
	return p
}

func (p *Process) Out() io.Reader { return p.out }

func (p *Process) In() io.Writer { return p.in }

func (p *Process) Resize(ws ptyx.Winsize) error {
	return p.session.WindowChange(int(ws.Rows), int(ws.Cols))
}

func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Process) Done() <-chan struct{} { return p.done }

// Pid is always 0; the remote pid is not visible over SSH.
func (p *Process) Pid() int { return 0 }

// Close ends the SSH session and its connection.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		_ = p.in.Close()
		_ = p.session.Close()
		if err := p.client.Close(); err != nil && !errors.Is(err, io.EOF) {
			p.closeErr = err
		}
	})
	return p.closeErr
}

// keepAlive periodically sends keep-alive requests to actively detect dead
// connections. A failed or timed out request closes the client, which in
// turn ends the session.
func keepAlive(ctx context.Context, client *ssh.Client, logger *zap.Logger) {
	ticker := time.NewTicker(KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// SendRequest can block forever on a half-open connection.
			errC := make(chan error, 1)
			go func() {
				_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
				errC <- err
			}()

			select {
			case err := <-errC:
				if err != nil {
					logger.Warn("SSH keep-alive failed, closing connection", zap.Error(err))
					client.Close()
					return
				}
			case <-time.After(keepAliveRequestTimeout):
				logger.Warn("SSH keep-alive timed out, closing connection", zap.Duration("timeout", keepAliveRequestTimeout))
				client.Close()
				return
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
