package doctor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyCheck_Found(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_ed25519"), []byte("key"), 0600))

	result := (&KeyCheck{SSHDir: dir}).Run()
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "id_ed25519")
}

func TestKeyCheck_Missing(t *testing.T) {
	result := (&KeyCheck{SSHDir: t.TempDir()}).Run()
	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Suggestion, "ssh-keygen")
}

func TestKeyPermissionsCheck_OK(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_ed25519"), []byte("key"), 0600))

	result := (&KeyPermissionsCheck{SSHDir: dir}).Run()
	assert.Equal(t, StatusPass, result.Status)
}

func TestKeyPermissionsCheck_Loose(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_rsa"), []byte("key"), 0644))

	result := (&KeyPermissionsCheck{SSHDir: dir}).Run()
	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "id_rsa")
	assert.True(t, result.Fixable)
}

func TestKeyPermissionsCheck_Fix(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "id_rsa")
	require.NoError(t, os.WriteFile(keyPath, []byte("key"), 0644))

	check := &KeyPermissionsCheck{SSHDir: dir}
	require.NoError(t, check.Fix())

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.Equal(t, StatusPass, check.Run().Status)
}

func TestKeyPermissionsCheck_NoKeys(t *testing.T) {
	result := (&KeyPermissionsCheck{SSHDir: t.TempDir()}).Run()
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "No private keys")
}

func TestAgentCheck_NoAgent(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	result := (&AgentCheck{}).Run()
	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Suggestion, "ssh-agent")
}

func TestAgentCheck_DeadSocket(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", filepath.Join(t.TempDir(), "nonexistent.sock"))

	result := (&AgentCheck{}).Run()
	assert.Equal(t, StatusFail, result.Status)
}

func TestNewSSHChecks(t *testing.T) {
	checks := NewSSHChecks()
	require.Len(t, checks, 3)
	for _, c := range checks {
		assert.Equal(t, "SSH", c.Category())
	}
}
