package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.NotNil(t, cfg.Targets)
	assert.Empty(t, cfg.Targets)
	assert.Equal(t, 5*time.Second, cfg.Defaults.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.Defaults.AttemptTimeout)
	assert.Equal(t, 1, cfg.Defaults.PasswordRetries)
	assert.Equal(t, PolicyKnownHosts, cfg.Defaults.TrustPolicy)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ".knock.yaml")

	content := `
version: 1
defaults:
  username: alice
  connect_timeout: 2s
  attempt_timeout: 8s
  trust_policy: first_use
  known_hosts: ~/.ssh/knock_hosts
targets:
  web-1:
    host: 10.0.0.5
    tags: [prod, web]
    credentials:
      - type: password
        password_env: WEB1_PASSWORD
      - type: key
        identity: ~/.ssh/id_ed25519
  db-1:
    host: 10.0.0.9
    port: 2222
    username: postgres
    fingerprint: "SHA256:abcdef"
    credentials:
      - type: agent
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "alice", cfg.Defaults.Username)
	assert.Equal(t, 2*time.Second, cfg.Defaults.ConnectTimeout)
	assert.Equal(t, 8*time.Second, cfg.Defaults.AttemptTimeout)
	assert.Equal(t, PolicyFirstUse, cfg.Defaults.TrustPolicy)

	require.Len(t, cfg.Targets, 2)

	web := cfg.Targets["web-1"]
	assert.Equal(t, "10.0.0.5", web.Host)
	assert.Equal(t, 0, web.Port)
	assert.True(t, web.HasTag("prod"))
	assert.False(t, web.HasTag("staging"))
	require.Len(t, web.Credentials, 2)
	assert.Equal(t, CredPassword, web.Credentials[0].Type)
	assert.Equal(t, "WEB1_PASSWORD", web.Credentials[0].PasswordEnv)
	assert.Equal(t, CredKey, web.Credentials[1].Type)

	db := cfg.Targets["db-1"]
	assert.Equal(t, 2222, db.Port)
	assert.Equal(t, "postgres", db.Username)
	assert.Equal(t, "SHA256:abcdef", db.Fingerprint)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".knock.yaml")
	require.NoError(t, os.WriteFile(path, []byte("targets: [not a map"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFind_CurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1"), 0600))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	found, err := Find("")
	require.NoError(t, err)

	// Resolve symlinks for macOS-style /private/tmp temp dirs.
	wantResolved, _ := filepath.EvalSymlinks(configPath)
	gotResolved, _ := filepath.EvalSymlinks(found)
	assert.Equal(t, wantResolved, gotResolved)
}

func TestFind_Explicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1"), 0600))

	found, err := Find(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestFind_ExplicitMissing(t *testing.T) {
	_, err := Find(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
