package remote

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ptyterm/backend/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSSHConfig = `
# global
ServerAliveInterval 30

Host web web-alias
    HostName 10.0.0.5
    User deploy
    Port=2222

Host db
  HostName db.internal
  User first
  User second

Match host *.example.com
  User matched

Host *.corp !skip.corp
  User corpuser
  IdentityFile ~/.ssh/corp_key

Host *
  User fallback
  Port 22
`

func writeSSHConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(sampleSSHConfig), 0o600))
	return path
}

func TestParseParamLine(t *testing.T) {
	tests := []struct {
		line, key, value string
	}{
		{"HostName 10.0.0.5", "hostname", "10.0.0.5"},
		{"  Port=2222", "port", "2222"},
		{"Port = 2222", "port", "2222"},
		{`IdentityFile "~/my key"`, "identityfile", "~/my key"},
		{"# comment", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		key, value := parseParamLine(tt.line)
		assert.Equal(t, tt.key, key, tt.line)
		assert.Equal(t, tt.value, value, tt.line)
	}
}

func TestLoadHosts(t *testing.T) {
	hosts, err := LoadHosts(writeSSHConfig(t))
	require.NoError(t, err)

	require.Len(t, hosts, 3)
	assert.Equal(t, types.SSHHost{Alias: "web", HostName: "10.0.0.5", User: "deploy", Port: "2222"}, hosts[0])
	assert.Equal(t, "web-alias", hosts[1].Alias)
	assert.Equal(t, "10.0.0.5", hosts[1].HostName)
	assert.Equal(t, "db", hosts[2].Alias)
	assert.Equal(t, "first", hosts[2].User, "first value wins")
	assert.Equal(t, "22", hosts[2].Port, "wildcard block fills the gap")
}

func TestLoadHosts_MissingFile(t *testing.T) {
	hosts, err := LoadHosts(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestResolveTarget(t *testing.T) {
	path := writeSSHConfig(t)

	got, err := ResolveTarget(path, Target{Alias: "web", User: "override"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", got.HostName)
	assert.Equal(t, "override", got.User)
	assert.Equal(t, "2222", got.Port)

	got, err = ResolveTarget(path, Target{Alias: "app.corp"})
	require.NoError(t, err)
	assert.Equal(t, "app.corp", got.HostName)
	assert.Equal(t, "corpuser", got.User)
	assert.True(t, strings.HasSuffix(got.IdentityFile, filepath.Join(".ssh", "corp_key")))
	assert.False(t, strings.HasPrefix(got.IdentityFile, "~"))

	got, err = ResolveTarget(path, Target{Alias: "skip.corp"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", got.User, "negated pattern excludes the host")

	got, err = ResolveTarget(path, Target{HostName: "1.2.3.4"})
	require.NoError(t, err)
	assert.Equal(t, Target{HostName: "1.2.3.4"}, got, "no alias, nothing to resolve")
}
