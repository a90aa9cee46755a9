package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/knock/internal/config"
	"github.com/rileyhilliard/knock/internal/errors"
	"github.com/rileyhilliard/knock/internal/runner"
	"github.com/rileyhilliard/knock/internal/sshtest"
	"github.com/rileyhilliard/knock/pkg/probe"
)

// resetProbeFlags snapshots the probe flag state and restores it when the
// test ends, so tests can tweak flags freely.
func resetProbeFlags(t *testing.T) {
	t.Helper()
	saved := probeFlags
	probeFlags.user = ""
	probeFlags.passwordEnv = ""
	probeFlags.askPass = false
	probeFlags.identities = nil
	probeFlags.passphraseEnv = ""
	probeFlags.agent = false
	probeFlags.policy = ""
	probeFlags.knownHosts = ""
	probeFlags.fingerprint = ""
	probeFlags.retries = 1
	t.Cleanup(func() { probeFlags = saved })
}

// bareCommand returns a command with no flags registered; Changed reports
// false for everything, so config settings win.
func bareCommand() *cobra.Command {
	return &cobra.Command{Use: "probe"}
}

func testIdentityFile(t *testing.T) string {
	t.Helper()
	pemBytes, _, err := sshtest.GenerateClientKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id_test")
	require.NoError(t, os.WriteFile(path, pemBytes, 0600))
	return path
}

func TestFlagTrustPolicy(t *testing.T) {
	resetProbeFlags(t)

	tests := []struct {
		name        string
		policy      string
		fingerprint string
		expected    string
	}{
		{"default strict", "", "", "known-hosts"},
		{"known_hosts", config.PolicyKnownHosts, "", "known-hosts"},
		{"first_use", config.PolicyFirstUse, "", "first-use"},
		{"insecure", config.PolicyInsecure, "", "accept-any"},
		{"fingerprint wins", config.PolicyInsecure, "SHA256:abc", "pinned"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probeFlags.policy = tt.policy
			probeFlags.fingerprint = tt.fingerprint
			assert.Equal(t, tt.expected, flagTrustPolicy().Name())
		})
	}
}

func TestFlagCredentials_Agent(t *testing.T) {
	resetProbeFlags(t)
	probeFlags.agent = true

	creds, err := flagCredentials("")
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "publickey (agent)", creds[0].Label())
}

func TestFlagCredentials_PasswordEnv(t *testing.T) {
	resetProbeFlags(t)
	t.Setenv("KNOCK_TEST_PW", "hunter2")
	probeFlags.passwordEnv = "KNOCK_TEST_PW"

	creds, err := flagCredentials("")
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, probe.MethodPassword, creds[0].Method())
}

func TestFlagCredentials_EmptyPasswordEnv(t *testing.T) {
	resetProbeFlags(t)
	t.Setenv("KNOCK_TEST_PW", "")
	probeFlags.passwordEnv = "KNOCK_TEST_PW"

	_, err := flagCredentials("")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFlagCredentials_IdentityFile(t *testing.T) {
	resetProbeFlags(t)
	probeFlags.identities = []string{testIdentityFile(t)}

	creds, err := flagCredentials("")
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, probe.MethodPublicKey, creds[0].Method())
}

func TestFlagCredentials_MissingIdentityFile(t *testing.T) {
	resetProbeFlags(t)
	probeFlags.identities = []string{filepath.Join(t.TempDir(), "nope")}

	_, err := flagCredentials("")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFlagCredentials_SSHConfigIdentityFallback(t *testing.T) {
	resetProbeFlags(t)
	identity := testIdentityFile(t)

	creds, err := flagCredentials(identity)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, probe.MethodPublicKey, creds[0].Method())
}

func TestFlagCredentials_NoFallbackWhenFlagsGiven(t *testing.T) {
	resetProbeFlags(t)
	probeFlags.agent = true

	// An explicit credential flag suppresses the ssh_config identity.
	creds, err := flagCredentials(filepath.Join(t.TempDir(), "ignored"))
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "publickey (agent)", creds[0].Label())
}

func TestFlagCredentials_NoneGiven(t *testing.T) {
	resetProbeFlags(t)

	_, err := flagCredentials("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No credentials")
}

func TestFlagCredentials_Ordering(t *testing.T) {
	resetProbeFlags(t)
	t.Setenv("KNOCK_TEST_PW", "hunter2")
	probeFlags.agent = true
	probeFlags.identities = []string{testIdentityFile(t)}
	probeFlags.passwordEnv = "KNOCK_TEST_PW"

	creds, err := flagCredentials("")
	require.NoError(t, err)
	require.Len(t, creds, 3)
	assert.Equal(t, "publickey (agent)", creds[0].Label())
	assert.Equal(t, probe.MethodPublicKey, creds[1].Method())
	assert.Equal(t, probe.MethodPassword, creds[2].Method())
}

func TestSpecJob(t *testing.T) {
	resetProbeFlags(t)
	probeFlags.agent = true

	job, err := specJob(bareCommand(), "deploy@web.example.com:2222")
	require.NoError(t, err)

	assert.Equal(t, "deploy@web.example.com:2222", job.Name)
	assert.Equal(t, "web.example.com", job.Target.Host)
	assert.Equal(t, 2222, job.Target.Port)
	assert.Equal(t, "deploy", job.Username)
	require.Len(t, job.Credentials, 1)
}

func TestSpecJob_UserFlagWins(t *testing.T) {
	resetProbeFlags(t)
	probeFlags.agent = true
	probeFlags.user = "admin"

	job, err := specJob(bareCommand(), "deploy@web.example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", job.Username)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Defaults.Username = "deploy"
	cfg.Targets["web"] = config.TargetEntry{
		Host: "web.example.com",
		Port: 2200,
		Tags: []string{"prod"},
		Credentials: []config.CredentialEntry{
			{Type: config.CredAgent},
		},
	}
	return cfg
}

func TestConfigJob_UsesConfigSettings(t *testing.T) {
	resetProbeFlags(t)

	job, err := configJob(bareCommand(), testConfig(), "web")
	require.NoError(t, err)

	assert.Equal(t, "web", job.Name)
	assert.Equal(t, "web.example.com", job.Target.Host)
	assert.Equal(t, 2200, job.Target.Port)
	assert.Equal(t, "deploy", job.Username)
	assert.Equal(t, 5*time.Second, job.Options.ConnectTimeout)
}

func TestConfigJob_ExplicitFlagWins(t *testing.T) {
	resetProbeFlags(t)
	probeFlags.retries = 5
	probeFlags.connectTimeout = 2 * time.Second

	cmd := bareCommand()
	cmd.Flags().Int("retries", 1, "")
	cmd.Flags().Duration("connect-timeout", 0, "")
	require.NoError(t, cmd.Flags().Set("retries", "5"))
	require.NoError(t, cmd.Flags().Set("connect-timeout", "2s"))

	job, err := configJob(cmd, testConfig(), "web")
	require.NoError(t, err)

	assert.Equal(t, 5, job.Options.MaxPasswordRetries)
	assert.Equal(t, 2*time.Second, job.Options.ConnectTimeout)
}

func TestConfigJob_UnknownTarget(t *testing.T) {
	resetProbeFlags(t)

	_, err := configJob(bareCommand(), testConfig(), "missing")
	require.Error(t, err)
}

func TestVerdictsOf(t *testing.T) {
	result := &runner.Result{
		JobResults: []runner.JobResult{
			{Name: "a", Verdict: &probe.Verdict{FinalOutcome: probe.Connected}},
			{Name: "b", Verdict: nil},
			{Name: "c", Verdict: &probe.Verdict{FinalOutcome: probe.AuthFailed}},
		},
	}

	verdicts := verdictsOf(result)
	require.Len(t, verdicts, 2)
	assert.Equal(t, probe.Connected, verdicts[0].FinalOutcome)
	assert.Equal(t, probe.AuthFailed, verdicts[1].FinalOutcome)
}
