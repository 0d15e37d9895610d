package ptyx

import (
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
)

// Command creates a new exec.Cmd for the given shell.
// When login is true on Unix-like systems, it adds the "-l" (login) flag so
// profile files like ~/.zprofile are loaded. cmd.exe and PowerShell do not
// support "-l" and have their own profile loading mechanism, so the flag is
// never added on Windows.
func Command(shell string, login bool, args ...string) *exec.Cmd {
	if login && runtime.GOOS != "windows" {
		args = append([]string{"-l"}, args...)
	}
	return exec.Command(shell, args...)
}

// DefaultShell returns the platform interactive shell: cmd.exe on Windows,
// /bin/bash elsewhere with /bin/sh as the fallback.
func DefaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd.exe"
	}
	if _, err := os.Stat("/bin/bash"); err == nil {
		return "/bin/bash"
	}
	return "/bin/sh"
}

// DefaultTerm returns the TERM value handed to the child. The Windows
// console has no ANSI passthrough, so it gets a monochrome terminal type.
func DefaultTerm() string {
	if runtime.GOOS == "windows" {
		return "xterm-mono"
	}
	return "vt100"
}

// Env merges overrides into base (a KEY=VALUE list such as os.Environ()) and
// returns a new list. base is not modified and keys keep their first
// position. Keys are matched case-insensitively on Windows.
func Env(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	index := make(map[string]int, len(base))
	for _, kv := range base {
		k, _, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		nk := envKey(k)
		if i, dup := index[nk]; dup {
			out[i] = kv
			continue
		}
		index[nk] = len(out)
		out = append(out, kv)
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		kv := k + "=" + overrides[k]
		if i, ok := index[envKey(k)]; ok {
			out[i] = kv
			continue
		}
		index[envKey(k)] = len(out)
		out = append(out, kv)
	}
	return out
}

func envKey(k string) string {
	if runtime.GOOS == "windows" {
		return strings.ToUpper(k)
	}
	return k
}
