package terminal

import (
	"sync"

	"ptyterm/backend/internal/config"
	"ptyterm/backend/pkg/ptyx"

	"go.uber.org/zap"
)

// LocalLauncher starts a shell on a local PTY.
type LocalLauncher struct {
	Shell string
	Args  []string
	Login bool
	Term  string
	Env   map[string]string

	Spawner ptyx.Spawner
	Logger  *zap.Logger
}

// NewLocalLauncher builds a LocalLauncher from the configured shell.
func NewLocalLauncher(cfg *config.Config, logger *zap.Logger) *LocalLauncher {
	return &LocalLauncher{
		Shell:  cfg.Shell,
		Args:   cfg.ShellArgs,
		Login:  cfg.Login,
		Term:   cfg.Term,
		Logger: logger,
	}
}

func (l *LocalLauncher) Launch(size ptyx.Winsize) (Process, error) {
	p, err := l.Spawner.Spawn(ptyx.Options{
		Shell: l.Shell,
		Args:  l.Args,
		Login: l.Login,
		Term:  l.Term,
		Env:   l.Env,
		Size:  size,
	})
	if err != nil {
		return nil, err
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &localProcess{Process: p, logger: logger}, nil
}

// localProcess tears down the whole process group on Close, so background
// jobs started from the shell do not outlive the session.
type localProcess struct {
	*ptyx.Process
	logger *zap.Logger
	once   sync.Once
}

func (p *localProcess) Close() error {
	p.once.Do(func() {
		terminateProcessGroup(p.Pid(), p.logger.With(zap.Int("pid", p.Pid())))
	})
	return p.Process.Close()
}
