package terminal

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"ptyterm/backend/internal/config"
	"ptyterm/backend/internal/remote"
	"ptyterm/backend/internal/types"
	"ptyterm/backend/pkg/ptyx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Attachment 是会话与显示端的绑定
type Attachment struct {
	Surface  Surface
	Waker    Waker
	OnExit   func(id string)
	OnBroken func(id string, err error)
}

// AttachFunc 在会话 ID 生成后、子进程启动前被调用，用来构造显示端
type AttachFunc func(id string) Attachment

// Option configures a Service.
type Option func(*Service)

// WithLauncher replaces the launcher used for local sessions.
func WithLauncher(l Launcher) Option {
	return func(s *Service) { s.local = l }
}

// WithRemoteLauncher sets the launcher used by StartRemoteSession.
func WithRemoteLauncher(r *remote.Launcher) Option {
	return func(s *Service) { s.remote = r }
}

// WithClipboard gives every session access to a clipboard.
func WithClipboard(c Clipboard) Option {
	return func(s *Service) { s.clipboard = c }
}

type entry struct {
	session *Session
	alias   string
	kind    string
	created time.Time
}

// Service 负责管理所有活动的终端会话
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	cfg      *config.Config

	local     Launcher
	remote    *remote.Launcher
	clipboard Clipboard
	logger    *zap.Logger
}

// NewService 是终端服务的构造函数
func NewService(cfg *config.Config, logger *zap.Logger, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		sessions: make(map[string]*entry),
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.remote == nil {
		s.remote = remote.NewLauncher(logger)
	}
	return s
}

// SetConfig replaces the configuration used for sessions started from now on.
func (s *Service) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Service) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// StartLocalSession 启动一个本地的 shell 会话
func (s *Service) StartLocalSession(attach AttachFunc) (*types.TerminalSessionInfo, error) {
	cfg := s.config()
	launcher := s.local
	if launcher == nil {
		launcher = NewLocalLauncher(cfg, s.logger)
	}

	sess, err := s.start(types.SessionLocal, "local", launcher, attach)
	if err != nil {
		return nil, fmt.Errorf("failed to start local terminal: %w", err)
	}

	// 初始命令在 shell 就绪后发送
	if cfg.InitCommand != "" {
		cmd := cfg.InitCommand + "\n"
		time.AfterFunc(cfg.InitDelay.Std(), func() {
			if err := sess.Send([]byte(cmd)); err != nil {
				s.logger.Warn("init command not sent", zap.String("session", sess.ID()), zap.Error(err))
			}
		})
	}
	return s.info(sess.ID())
}

// StartRemoteSession 通过 SSH 在远程主机上启动一个 shell 会话
func (s *Service) StartRemoteSession(target remote.Target, attach AttachFunc) (*types.TerminalSessionInfo, error) {
	launcher := LauncherFunc(func(size ptyx.Winsize) (Process, error) {
		p, err := s.remote.Launch(target, size)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	sess, err := s.start(types.SessionRemote, target.Name(), launcher, attach)
	if err != nil {
		return nil, err
	}
	return s.info(sess.ID())
}

func (s *Service) start(kind, alias string, launcher Launcher, attach AttachFunc) (*Session, error) {
	cfg := s.config()
	id := uuid.NewString()
	att := attach(id)
	logger := s.logger.With(zap.String("type", kind), zap.String("alias", alias))

	// 会话可能在注册前就退出, OnExit 等待注册完成后再清理
	registered := make(chan struct{})
	opts := Options{
		ID:             id,
		Surface:        att.Surface,
		Waker:          att.Waker,
		Clipboard:      s.clipboard,
		Launcher:       launcher,
		Size:           ptyx.Winsize{Cols: cfg.Cols, Rows: cfg.Rows},
		ReadBufferSize: cfg.ReadBufferSize,
		PollInterval:   cfg.PollInterval.Std(),
		StartupDelay:   cfg.StartupDelay.Std(),
		WriteTimeout:   cfg.WriteTimeout.Std(),
		MaxPending:     cfg.MaxPending,
		CellWidth:      cfg.CellWidth,
		CellHeight:     cfg.CellHeight,
		Logger:         logger,
		OnExit: func(sess *Session) {
			<-registered
			s.remove(id)
			if att.OnExit != nil {
				att.OnExit(id)
			}
		},
		OnBroken: func(sess *Session, err error) {
			if att.OnBroken != nil {
				att.OnBroken(id, err)
			}
		},
	}

	sess, err := NewSession(opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[id] = &entry{session: sess, alias: alias, kind: kind, created: time.Now()}
	s.mu.Unlock()
	close(registered)

	return sess, nil
}

// Get returns the session with the given id.
func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e.session, nil
}

func (s *Service) info(id string) (*types.TerminalSessionInfo, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	info := e.info()
	return &info, nil
}

func (e *entry) info() types.TerminalSessionInfo {
	size := e.session.Size()
	return types.TerminalSessionInfo{
		ID:    e.session.ID(),
		Alias: e.alias,
		Type:  e.kind,
		Pid:   e.session.Pid(),
		Cols:  size.Cols,
		Rows:  size.Rows,
	}
}

// List returns all sessions, oldest first.
func (s *Service) List() []types.TerminalSessionInfo {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].created.Before(entries[j].created) })
	out := make([]types.TerminalSessionInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.info())
	}
	return out
}

func (s *Service) Send(id string, data []byte) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	return sess.Send(data)
}

func (s *Service) Handle(id string, ev Event) (bool, error) {
	sess, err := s.Get(id)
	if err != nil {
		return false, err
	}
	return sess.Handle(ev), nil
}

// Resize propagates a display resize in pixels.
func (s *Service) Resize(id string, x, y, w, h int) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	return sess.Resize(x, y, w, h)
}

// SetSize resizes a session in character cells.
func (s *Service) SetSize(id string, cols, rows uint16) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	return sess.SetSize(cols, rows)
}

// Close 关闭会话并从 map 中移除
func (s *Service) Close(id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e.session.Close()
}

func (s *Service) remove(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		s.logger.Info("cleaned up terminal session", zap.String("session", id))
	}
}

// Shutdown 在应用退出时关闭所有活动的终端会话
func (s *Service) Shutdown() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for id, e := range s.sessions {
		sessions = append(sessions, e.session)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	s.logger.Info("terminal service shutting down", zap.Int("sessions", len(sessions)))
	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Add(1)
		go func(sess *Session) {
			defer wg.Done()
			if err := sess.Close(); err != nil {
				s.logger.Debug("close session", zap.String("session", sess.ID()), zap.Error(err))
			}
		}(sess)
	}
	wg.Wait()
}
