package remote

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"ptyterm/backend/internal/types"

	"github.com/skeema/knownhosts"
	"golang.org/x/crypto/ssh"
)

var knownHostsMu sync.Mutex

// DefaultKnownHostsPath returns ~/.ssh/known_hosts.
func DefaultKnownHostsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}
	return filepath.Join(home, ".ssh", "known_hosts"), nil
}

// hostKeyCallback verifies the server key against path. An unknown host is
// appended when acceptNew is set and otherwise reported as a
// *types.HostKeyVerificationRequiredError carrying the fingerprint. A
// changed key is always an error.
func hostKeyCallback(t Target, path string, acceptNew bool) (ssh.HostKeyCallback, []string, error) {
	if err := ensureFile(path); err != nil {
		return nil, nil, err
	}
	kh, err := knownhosts.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create known_hosts callback: %w", err)
	}

	cb := func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := kh(hostname, remote, key)
		if err == nil || !knownhosts.IsHostUnknown(err) {
			return err
		}
		if acceptNew {
			return appendKnownHost(path, hostname, remote, key)
		}
		return &types.HostKeyVerificationRequiredError{
			Alias:       t.Name(),
			Fingerprint: ssh.FingerprintSHA256(key),
			HostAddress: hostname,
		}
	}
	return cb, kh.HostKeyAlgorithms(t.Address()), nil
}

func appendKnownHost(path, hostname string, remote net.Addr, key ssh.PublicKey) error {
	knownHostsMu.Lock()
	defer knownHostsMu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open known_hosts: %w", err)
	}
	defer f.Close()
	if err := knownhosts.WriteKnownHost(f, hostname, remote, key); err != nil {
		return fmt.Errorf("write known_hosts: %w", err)
	}
	return nil
}

func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create known_hosts: %w", err)
	}
	return f.Close()
}
