package remote

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ptyterm/backend/internal/types"
)

// DefaultSSHConfigPath returns ~/.ssh/config.
func DefaultSSHConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home dir: %w", err)
	}
	return filepath.Join(home, ".ssh", "config"), nil
}

type hostBlock struct {
	patterns []string
	params   map[string]string
}

// matches follows ssh_config pattern rules: any negated match excludes the
// host, otherwise one positive match is enough.
func (b hostBlock) matches(alias string) bool {
	matched := false
	for _, p := range b.patterns {
		negate := strings.HasPrefix(p, "!")
		ok, _ := path.Match(strings.TrimPrefix(p, "!"), alias)
		if ok && negate {
			return false
		}
		if ok {
			matched = true
		}
	}
	return matched
}

func (b hostBlock) concrete() []string {
	var names []string
	for _, p := range b.patterns {
		if !strings.ContainsAny(p, "*?!") {
			names = append(names, p)
		}
	}
	return names
}

// parseSSHConfig reads Host blocks. Keys are lower-cased, the first value
// for a key inside a block wins, Match blocks are skipped.
func parseSSHConfig(r io.Reader) ([]hostBlock, error) {
	var (
		blocks  []hostBlock
		current *hostBlock
		inMatch bool
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, value := parseParamLine(sc.Text())
		if key == "" {
			continue
		}
		switch key {
		case "host":
			blocks = append(blocks, hostBlock{patterns: parseHostNames(value), params: map[string]string{}})
			current = &blocks[len(blocks)-1]
			inMatch = false
			continue
		case "match":
			current, inMatch = nil, true
			continue
		}
		if inMatch {
			continue
		}
		if current == nil {
			// parameters before the first Host line apply to every host
			blocks = append(blocks, hostBlock{patterns: []string{"*"}, params: map[string]string{}})
			current = &blocks[len(blocks)-1]
		}
		if _, ok := current.params[key]; !ok {
			current.params[key] = value
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ssh config: %w", err)
	}
	return blocks, nil
}

// parseParamLine accepts both "Key value" and "Key=value".
func parseParamLine(line string) (key, value string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", ""
	}
	i := strings.IndexAny(line, " \t=")
	if i < 0 {
		return strings.ToLower(line), ""
	}
	key = strings.ToLower(line[:i])
	value = strings.TrimLeft(line[i:], " \t")
	value = strings.TrimPrefix(value, "=")
	value = strings.Trim(strings.TrimSpace(value), `"`)
	return key, value
}

func parseHostNames(value string) []string {
	var names []string
	for _, f := range strings.Fields(value) {
		if n := strings.Trim(f, `"'`); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func loadBlocks(configPath string) ([]hostBlock, error) {
	f, err := os.Open(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ssh config: %w", err)
	}
	defer f.Close()
	return parseSSHConfig(f)
}

// lookup collects the effective parameters for alias, first match wins.
func lookup(blocks []hostBlock, alias string) map[string]string {
	out := map[string]string{}
	for _, b := range blocks {
		if !b.matches(alias) {
			continue
		}
		for k, v := range b.params {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
	return out
}

// LoadHosts lists the concrete (non-wildcard) hosts in an ssh config file.
// A missing file yields an empty list.
func LoadHosts(configPath string) ([]types.SSHHost, error) {
	blocks, err := loadBlocks(configPath)
	if err != nil {
		return nil, err
	}
	var hosts []types.SSHHost
	seen := map[string]bool{}
	for _, b := range blocks {
		for _, alias := range b.concrete() {
			if seen[alias] {
				continue
			}
			seen[alias] = true
			p := lookup(blocks, alias)
			hosts = append(hosts, types.SSHHost{
				Alias:        alias,
				HostName:     p["hostname"],
				User:         p["user"],
				Port:         p["port"],
				IdentityFile: expandHomeDir(p["identityfile"]),
			})
		}
	}
	return hosts, nil
}

// ResolveTarget fills the empty connection fields of t from the ssh config
// entry matching t.Alias. Fields already set are kept, and like ssh the
// alias itself is the host name when nothing else names one.
func ResolveTarget(configPath string, t Target) (Target, error) {
	if t.Alias == "" {
		return t, nil
	}
	blocks, err := loadBlocks(configPath)
	if err != nil {
		return t, err
	}
	p := lookup(blocks, t.Alias)
	if t.HostName == "" {
		t.HostName = p["hostname"]
	}
	if t.HostName == "" {
		t.HostName = t.Alias
	}
	if t.User == "" {
		t.User = p["user"]
	}
	if t.Port == "" {
		t.Port = p["port"]
	}
	if t.IdentityFile == "" {
		t.IdentityFile = expandHomeDir(p["identityfile"])
	}
	return t, nil
}

func expandHomeDir(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
