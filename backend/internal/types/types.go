package types

import (
	"errors"
	"fmt"
)

const (
	SessionLocal  = "local"
	SessionRemote = "remote"
)

// TerminalSessionInfo 是返回给前端的会话描述
type TerminalSessionInfo struct {
	ID    string `json:"id"`
	Alias string `json:"alias"`
	Type  string `json:"type"` // "local" or "remote"
	Pid   int    `json:"pid,omitempty"`
	Cols  uint16 `json:"cols"`
	Rows  uint16 `json:"rows"`
	// URL 仅在 WebSocket 服务开启时填写
	URL string `json:"url,omitempty"`
}

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"` // e.g., "INFO", "WARN", "ERROR"
	Message   string `json:"message"`
}

// SSHHost 描述一个远程终端的目标主机
type SSHHost struct {
	Alias        string `json:"alias"`        // 显示名称, e.g., "my-server"
	HostName     string `json:"hostName"`     // e.g., "192.168.1.100"
	User         string `json:"user"`         // e.g., "root"
	Port         string `json:"port"`         // e.g., "22"
	IdentityFile string `json:"identityFile"` // e.g., "~/.ssh/id_rsa"
}

// InputEvent 是前端发来的输入事件
type InputEvent struct {
	Kind  string `json:"kind"` // "focus", "keydown", "keyup", "paste"
	Key   string `json:"key,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Text  string `json:"text,omitempty"`
}

// ResizeEvent 携带显示区域的像素尺寸
type ResizeEvent struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PasswordRequiredError 表示连接因为需要密码而失败
type PasswordRequiredError struct {
	Alias string
}

func (e *PasswordRequiredError) Error() string {
	// 前端根据这个错误信息判断是否弹出密码框
	return fmt.Sprintf("password is required for host %s", e.Alias)
}

// HostKeyVerificationRequiredError 表示需要用户确认一个新的主机指纹
type HostKeyVerificationRequiredError struct {
	Alias       string
	Fingerprint string
	HostAddress string
}

func (e *HostKeyVerificationRequiredError) Error() string {
	return fmt.Sprintf("host key verification required for host %s (%s)", e.Alias, e.HostAddress)
}

// SessionBrokenError 表示会话的写入端已损坏，输入不再到达 shell
type SessionBrokenError struct {
	SessionID string
	Err       error
}

func (e *SessionBrokenError) Error() string {
	return fmt.Sprintf("terminal session %s is broken: %v", e.SessionID, e.Err)
}

func (e *SessionBrokenError) Unwrap() error { return e.Err }

// IsSessionBroken reports whether err marks a broken session.
func IsSessionBroken(err error) bool {
	var target *SessionBrokenError
	return errors.As(err, &target)
}
