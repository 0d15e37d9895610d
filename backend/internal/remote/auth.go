package remote

import (
	"errors"
	"fmt"
	"net"
	"os"

	"ptyterm/backend/internal/types"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/ssh"
)

// KeyringService is the service name passwords are stored under.
const KeyringService = "ptyterm-ssh"

// Target is the remote host a session connects to.
type Target struct {
	Alias        string `json:"alias"`
	HostName     string `json:"hostName"`
	Port         string `json:"port"`
	User         string `json:"user"`
	IdentityFile string `json:"identityFile"`
	// Password 是用户本次在 UI 上输入的密码, 不会被保存
	Password string `json:"-"`
	// TrustHostKey 表示用户已确认指纹, 未知主机的公钥会被写入 known_hosts
	TrustHostKey bool `json:"-"`
}

// Name is the alias, or user@host when no alias is set.
func (t Target) Name() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.User + "@" + t.HostName
}

// Address is host:port, defaulting to port 22.
func (t Target) Address() string {
	port := t.Port
	if port == "" {
		port = "22"
	}
	return net.JoinHostPort(t.HostName, port)
}

// SecretGetter reads a saved password. keyring.Get in production.
type SecretGetter func(service, user string) (string, error)

// AuthMethods 按优先级收集认证方式: 本次输入的密码, IdentityFile, 钥匙串中保存的密码。
// 一个都没有时返回 *types.PasswordRequiredError。
func AuthMethods(t Target, get SecretGetter) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if t.Password != "" {
		methods = append(methods, ssh.Password(t.Password))
	}

	if t.IdentityFile != "" {
		if key, err := readKeyFile(t.IdentityFile); err == nil {
			if signer, err := ssh.ParsePrivateKey(key); err == nil {
				methods = append(methods, ssh.PublicKeys(signer))
			}
		}
	}

	if get != nil {
		if saved, err := get(KeyringService, t.Name()); err == nil && saved != "" {
			methods = append(methods, ssh.Password(saved))
		}
	}

	if len(methods) == 0 {
		return nil, &types.PasswordRequiredError{Alias: t.Name()}
	}
	return methods, nil
}

// SavePassword 将密码安全地存入系统钥匙串
func SavePassword(alias, password string) error {
	if err := keyring.Set(KeyringService, alias, password); err != nil {
		return fmt.Errorf("save password for %s: %w", alias, err)
	}
	return nil
}

// DeletePassword 从系统钥匙串中删除密码, 不存在时也算成功
func DeletePassword(alias string) error {
	err := keyring.Delete(KeyringService, alias)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete password for %s: %w", alias, err)
	}
	return nil
}

// readKeyFile 读取密钥文件并展开'~'
func readKeyFile(path string) ([]byte, error) {
	return os.ReadFile(expandHomeDir(path))
}
