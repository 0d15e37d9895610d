package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"ptyterm/backend/internal/clipboard"
	"ptyterm/backend/internal/config"
	"ptyterm/backend/internal/display"
	"ptyterm/backend/internal/logging"
	"ptyterm/backend/internal/remote"
	"ptyterm/backend/internal/types"
	"ptyterm/backend/pkg/platform"
	"ptyterm/backend/pkg/utils"
	"ptyterm/backend/service/terminal"
)

// bundleID 与 wails 打包时的 mac BundleIdentifier 保持一致
const bundleID = "com.wails.ptyterm"

// App struct
type App struct {
	ctx        context.Context
	cfg        *config.Config
	configPath string
	logger     *logging.Logger
	watcher    *config.Watcher
	wsServer   *http.Server

	Terminal *terminal.Service

	mu       sync.Mutex
	surfaces map[string]*display.Wails
	activeID string // 最近获得焦点的终端

	isQuitting atomic.Bool // ForceQuit 和 OnBeforeClose 在不同的 goroutine 上
	isDebug    bool
	isMacOS    bool
}

// NewApp creates a new App application struct
func NewApp(isDebug, isMacOS bool) *App {
	return &App{
		surfaces: make(map[string]*display.Wails),
		isDebug:  isDebug,
		isMacOS:  isMacOS,
	}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.isQuitting.Store(false)

	// 配置: 默认值 -> config.json -> PTYTERM_* 环境变量
	path, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "警告: 无法获取用户配置目录: %v\n", err)
	}
	a.configPath = path
	cfg, cfgErr := config.Load(path)
	if cfgErr != nil {
		cfg = config.Default()
	}
	a.cfg = cfg

	// --- 日志初始化 ---
	a.logger = a.newLogger(cfg)
	a.logger.Info("-------------------- App Starting --------------------",
		zap.Bool("debug", a.isDebug),
		zap.String("config", path),
	)
	if cfgErr != nil {
		a.logger.Warn("加载配置文件失败, 使用默认配置", zap.Error(cfgErr))
	}

	if a.isMacOS {
		// 长按按键时连续输入, 而不是弹出重音字符选择框
		if _, err := platform.EnableKeyRepeat(bundleID, a.logger.Logger); err != nil {
			a.logger.Warn("无法为应用开启按键重复", zap.Error(err))
		}
	}

	a.Terminal = terminal.NewService(cfg, a.logger.Named("terminal"),
		terminal.WithClipboard(clipboard.System{}),
	)

	// 配置文件变化时热更新日志级别和新会话的参数
	if path != "" {
		a.watcher, err = config.NewWatcher(ctx, path, a.logger.Named("config"), a.onConfigChange)
		if err != nil {
			a.logger.Warn("配置文件监控启动失败", zap.Error(err))
		} else {
			utils.SafeGo(a.logger.Logger, "config-watcher", a.watcher.Start)
		}
	}

	if cfg.ListenAddr != "" {
		a.startWebSocketServer(cfg.ListenAddr)
	}
}

func (a *App) newLogger(cfg *config.Config) *logging.Logger {
	outputs := []string{"stderr"}
	logFile := cfg.LogFile
	if logFile == "" && a.configPath != "" {
		// 日志和配置放同一个目录
		logFile = filepath.Join(filepath.Dir(a.configPath), "app.log")
	}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o750); err == nil {
			// 开发模式同时输出到终端和文件, 生产模式只写文件
			if a.isDebug {
				outputs = append(outputs, logFile)
			} else {
				outputs = []string{logFile}
			}
		}
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Development: a.isDebug || cfg.LogDevelopment,
		OutputPaths: outputs,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "警告: 初始化日志失败: %v\n", err)
		logger, _ = logging.New(logging.DefaultConfig())
	}
	return logger
}

func (a *App) onConfigChange(cfg *config.Config) {
	if err := a.logger.SetLevel(cfg.LogLevel); err != nil {
		a.logger.Warn("invalid log level in config", zap.Error(err))
	}
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
	a.Terminal.SetConfig(cfg)
}

// startWebSocketServer 在后台启动一个 HTTP 服务器, 浏览器可以通过 /ws/terminal 打开终端
func (a *App) startWebSocketServer(addr string) {
	handler := display.NewHandler(a.Terminal, a.logger.Named("websocket"))
	a.wsServer = &http.Server{
		Addr:              addr,
		Handler:           display.NewServeMux(handler, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	utils.SafeGo(a.logger.Logger, "websocket-server", func() {
		a.logger.Info("Starting terminal WebSocket server", zap.String("addr", addr))
		if err := a.wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// 端口被占用时不影响桌面端, 只记录并通知前端
			a.logger.Error("terminal WebSocket server failed", zap.Error(err))
			a.emitLog("ERROR", fmt.Sprintf("terminal WebSocket server on %s failed: %v", addr, err))
		}
	})
}

// Shutdown is called when the app terminates.
func (a *App) Shutdown(ctx context.Context) {
	a.logger.Info("app shutdown")
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.wsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_ = a.wsServer.Shutdown(shutdownCtx)
	}
	if a.Terminal != nil {
		a.Terminal.Shutdown()
	}
	_ = a.logger.Sync()
}

// OnBeforeClose is called when the user attempts to close the window.
func (a *App) OnBeforeClose(ctx context.Context) (prevent bool) {
	// 这个逻辑只在 macOS 上生效
	if !a.isMacOS || a.isQuitting.Load() {
		return false
	}
	// 还有终端在运行时让前端确认
	if len(a.Terminal.List()) == 0 {
		return false
	}
	runtime.EventsEmit(ctx, "app:request-quit")
	return true
}

// Menu 创建 File 和 Terminal 菜单
func (a *App) Menu(appMenu *menu.Menu) {
	fileMenu := appMenu.AddSubmenu("File")
	if a.isMacOS {
		fileMenu.AddText("Quit ptyterm", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
			runtime.Quit(a.ctx)
		})
	} else {
		fileMenu.AddText("Exit", keys.OptionOrAlt("f4"), func(_ *menu.CallbackData) {
			runtime.Quit(a.ctx)
		})
	}

	termMenu := appMenu.AddSubmenu("Terminal")
	termMenu.AddText("New Terminal", keys.Combo("t", keys.CmdOrCtrlKey, keys.ShiftKey), func(_ *menu.CallbackData) {
		runtime.EventsEmit(a.ctx, "terminal:new")
	})
	termMenu.AddSeparator()

	// Copy / Paste 作用于当前获得焦点的终端, 快捷键与右键菜单一致
	for _, item := range []struct {
		label    string
		shortcut terminal.Shortcut
		action   func(*terminal.Session) error
	}{
		{"Copy", terminal.CopyShortcut, (*terminal.Session).Copy},
		{"Paste", terminal.PasteShortcut, (*terminal.Session).Paste},
	} {
		label := item.label
		if !a.isMacOS {
			label += "\t" + item.shortcut.String()
		}
		termMenu.AddText(label, accelerator(item.shortcut), func(_ *menu.CallbackData) {
			sess, err := a.activeSession()
			if err != nil {
				return
			}
			if err := item.action(sess); err != nil {
				a.logger.Warn("terminal menu action failed", zap.String("action", item.label), zap.Error(err))
			}
		})
	}
}

func accelerator(sc terminal.Shortcut) *keys.Accelerator {
	key := strings.ToLower(string(sc.Key))
	switch {
	case sc.Mods&terminal.ModCtrl != 0:
		return keys.Control(key)
	case sc.Mods&terminal.ModShift != 0:
		return keys.Shift(key)
	case sc.Mods&terminal.ModAlt != 0:
		return keys.OptionOrAlt(key)
	case sc.Mods&terminal.ModMeta != 0:
		return keys.CmdOrCtrl(key)
	}
	return keys.Key(key)
}

// --- 终端会话方法 ---

// attach 为新会话创建 Wails 显示端并登记
func (a *App) attach(id string) terminal.Attachment {
	surface := display.NewWails(a.ctx, id)
	a.mu.Lock()
	a.surfaces[id] = surface
	a.mu.Unlock()

	return terminal.Attachment{
		Surface: surface,
		Waker:   surface,
		OnExit: func(id string) {
			surface.Exit()
			// 前端还没订阅时保留显示端, AttachTerminal 回放后再清理
			if surface.Attached() {
				a.forgetSurface(id)
			}
			a.emitLog("INFO", fmt.Sprintf("terminal %s exited", id))
		},
		OnBroken: func(id string, err error) {
			surface.Broken(err)
			a.emitLog("ERROR", err.Error())
		},
	}
}

func (a *App) forgetSurface(id string) {
	a.mu.Lock()
	delete(a.surfaces, id)
	if a.activeID == id {
		a.activeID = ""
	}
	a.mu.Unlock()
}

// AttachTerminal 在前端订阅完 terminal:*:<id> 事件后调用, 回放会话启动以来的输出和事件
func (a *App) AttachTerminal(id string) error {
	s, err := a.surface(id)
	if err != nil {
		return err
	}
	if exited := s.Attach(); exited {
		a.forgetSurface(id)
	}
	return nil
}

// dropSurface 清理启动失败的会话留下的显示端
func (a *App) dropSurface(id string) {
	a.mu.Lock()
	delete(a.surfaces, id)
	a.mu.Unlock()
}

func (a *App) surface(id string) (*display.Wails, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.surfaces[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", terminal.ErrSessionNotFound, id)
	}
	return s, nil
}

func (a *App) activeSession() (*terminal.Session, error) {
	a.mu.Lock()
	id := a.activeID
	a.mu.Unlock()
	if id == "" {
		return nil, terminal.ErrSessionNotFound
	}
	return a.Terminal.Get(id)
}

// StartTerminalSession 启动一个本地 shell
func (a *App) StartTerminalSession() (*types.TerminalSessionInfo, error) {
	var attachedID string
	info, err := a.Terminal.StartLocalSession(func(id string) terminal.Attachment {
		attachedID = id
		return a.attach(id)
	})
	if err != nil {
		a.dropSurface(attachedID)
		a.logger.Error("failed to start local terminal", zap.Error(err))
		return nil, err
	}
	return info, nil
}

// StartRemoteTerminalSession 通过 SSH 打开远程终端
// password 为空时依次尝试密钥文件和钥匙串; 返回 PasswordRequiredError 时前端应弹出密码框,
// 返回 HostKeyVerificationRequiredError 时前端展示指纹, 用户确认后以 trustHost=true 重试
func (a *App) StartRemoteTerminalSession(host types.SSHHost, password string, savePassword, trustHost bool) (*types.TerminalSessionInfo, error) {
	target := remote.Target{
		Alias:        host.Alias,
		HostName:     host.HostName,
		Port:         host.Port,
		User:         host.User,
		IdentityFile: host.IdentityFile,
		Password:     password,
		TrustHostKey: trustHost,
	}
	if path, err := remote.DefaultSSHConfigPath(); err == nil {
		resolved, err := remote.ResolveTarget(path, target)
		if err != nil {
			a.logger.Warn("读取 ssh config 失败", zap.String("host", target.Name()), zap.Error(err))
		} else {
			target = resolved
		}
	}

	var attachedID string
	info, err := a.Terminal.StartRemoteSession(target, func(id string) terminal.Attachment {
		attachedID = id
		return a.attach(id)
	})
	if err != nil {
		a.dropSurface(attachedID)
		a.logger.Warn("failed to start remote terminal", zap.String("host", target.Name()), zap.Error(err))
		return nil, err
	}

	if savePassword && password != "" {
		if err := remote.SavePassword(target.Name(), password); err != nil {
			a.logger.Warn("保存密码失败", zap.String("host", target.Name()), zap.Error(err))
		}
	}
	return info, nil
}

// ListSSHHosts 返回 ~/.ssh/config 中的主机列表
func (a *App) ListSSHHosts() ([]types.SSHHost, error) {
	path, err := remote.DefaultSSHConfigPath()
	if err != nil {
		return nil, err
	}
	return remote.LoadHosts(path)
}

// DeletePasswordForAlias 从系统钥匙串中删除密码
func (a *App) DeletePasswordForAlias(alias string) error {
	return remote.DeletePassword(alias)
}

// SendToTerminal 把原始文本写入终端
func (a *App) SendToTerminal(id string, data string) error {
	return a.Terminal.Send(id, []byte(data))
}

// TerminalInput 处理前端的 focus/keydown/keyup/paste 事件, 返回事件是否被终端消费
func (a *App) TerminalInput(id string, ev types.InputEvent) (bool, error) {
	event := terminal.EventFromInput(ev)
	if event.Kind == terminal.EventFocus {
		a.mu.Lock()
		a.activeID = id
		a.mu.Unlock()
	}
	return a.Terminal.Handle(id, event)
}

// ResizeTerminal 根据显示区域的像素尺寸调整 PTY 行列
func (a *App) ResizeTerminal(id string, r types.ResizeEvent) error {
	return a.Terminal.Resize(id, r.X, r.Y, r.Width, r.Height)
}

// SetTerminalSelection 记录前端当前选中的文本, 供 Copy 使用
func (a *App) SetTerminalSelection(id string, text string) error {
	s, err := a.surface(id)
	if err != nil {
		return err
	}
	s.SetSelection(text)
	return nil
}

// MenuEntry 是右键菜单的一项
type MenuEntry struct {
	Label    string `json:"label"`
	Shortcut string `json:"shortcut"`
}

// TerminalContextMenu 返回终端右键菜单
func (a *App) TerminalContextMenu(id string) ([]MenuEntry, error) {
	sess, err := a.Terminal.Get(id)
	if err != nil {
		return nil, err
	}
	items := sess.ContextMenu()
	entries := make([]MenuEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, MenuEntry{Label: item.Label, Shortcut: item.Shortcut.String()})
	}
	return entries, nil
}

// RunTerminalMenuAction 执行右键菜单项
func (a *App) RunTerminalMenuAction(id string, label string) error {
	sess, err := a.Terminal.Get(id)
	if err != nil {
		return err
	}
	for _, item := range sess.ContextMenu() {
		if item.Label == label {
			return item.Action()
		}
	}
	return fmt.Errorf("unknown menu item %q", label)
}

func (a *App) CloseTerminal(id string) error {
	err := a.Terminal.Close(id)
	a.dropSurface(id)
	return err
}

func (a *App) ListTerminalSessions() []types.TerminalSessionInfo {
	return a.Terminal.List()
}

// LogFromFrontend 把前端日志写入后端日志
func (a *App) LogFromFrontend(entry types.LogEntry) {
	timestamp := entry.Timestamp
	if timestamp == "" {
		timestamp = time.Now().Format("15:04:05")
	}
	a.logger.Info(entry.Message,
		zap.String("source", "frontend"),
		zap.String("level", entry.Level),
		zap.String("timestamp", timestamp),
	)
}

func (a *App) emitLog(level, message string) {
	entry := types.LogEntry{
		Timestamp: time.Now().Format("15:04:05"),
		Level:     level,
		Message:   message,
	}
	runtime.EventsEmit(a.ctx, "log_event", entry)
}

// ForceQuit 强制退出应用程序
func (a *App) ForceQuit() {
	a.logger.Info("ForceQuit called from frontend")
	a.isQuitting.Store(true)
	runtime.Quit(a.ctx)
}
