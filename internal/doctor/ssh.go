package doctor

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// candidateKeyNames are the private key filenames probed in order of
// preference.
var candidateKeyNames = []string{"id_ed25519", "id_rsa", "id_ecdsa"}

// defaultSSHDir returns ~/.ssh, or "" when the home directory is unknown.
func defaultSSHDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh")
}

// KeyCheck verifies a usable private key exists.
type KeyCheck struct {
	// SSHDir overrides ~/.ssh, mainly for tests.
	SSHDir string
}

func (c *KeyCheck) Name() string     { return "ssh_key" }
func (c *KeyCheck) Category() string { return "SSH" }

func (c *KeyCheck) sshDir() string {
	if c.SSHDir != "" {
		return c.SSHDir
	}
	return defaultSSHDir()
}

func (c *KeyCheck) Run() CheckResult {
	dir := c.sshDir()
	if dir == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Cannot determine home directory",
			Suggestion: "Check HOME environment variable",
		}
	}

	for _, name := range candidateKeyNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return CheckResult{
				Name:    c.Name(),
				Status:  StatusPass,
				Message: fmt.Sprintf("Private key found: %s", name),
			}
		}
	}

	return CheckResult{
		Name:       c.Name(),
		Status:     StatusWarn,
		Message:    "No private key found",
		Suggestion: "Generate one with: ssh-keygen -t ed25519, or probe with a password credential",
	}
}

func (c *KeyCheck) Fix() error {
	// Generating key material is too invasive for auto-fix
	return nil
}

// AgentCheck verifies the SSH agent is reachable and holds keys. Agent
// credentials fail fast without it.
type AgentCheck struct{}

func (c *AgentCheck) Name() string     { return "ssh_agent" }
func (c *AgentCheck) Category() string { return "SSH" }

func (c *AgentCheck) Run() CheckResult {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent not running",
			Suggestion: "Start it with: eval $(ssh-agent) && ssh-add",
		}
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "SSH agent socket not accessible",
			Suggestion: "Restart it with: eval $(ssh-agent) && ssh-add",
		}
	}
	conn.Close() //nolint:errcheck // Best-effort close, error not actionable

	cmd := exec.Command("ssh-add", "-l")
	output, err := cmd.Output()
	if err != nil {
		// Exit code 1 means no keys loaded
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusWarn,
				Message:    "SSH agent running but no keys loaded",
				Suggestion: "Add a key with: ssh-add",
				Fixable:    true,
			}
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Cannot query SSH agent",
			Suggestion: "Check SSH agent: ssh-add -l",
		}
	}

	keyCount := 0
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if strings.TrimSpace(line) != "" {
			keyCount++
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH agent running with %d key%s loaded", keyCount, pluralize(keyCount)),
	}
}

func (c *AgentCheck) Fix() error {
	// ssh-add needs a passphrase prompt, so not auto-fixable
	return nil
}

// KeyPermissionsCheck flags private keys readable by group or other.
// OpenSSH servers reject such keys; probes using them behave confusingly.
type KeyPermissionsCheck struct {
	SSHDir string
}

func (c *KeyPermissionsCheck) Name() string     { return "ssh_key_permissions" }
func (c *KeyPermissionsCheck) Category() string { return "SSH" }

func (c *KeyPermissionsCheck) sshDir() string {
	if c.SSHDir != "" {
		return c.SSHDir
	}
	return defaultSSHDir()
}

func (c *KeyPermissionsCheck) Run() CheckResult {
	dir := c.sshDir()
	if dir == "" {
		return CheckResult{Name: c.Name(), Status: StatusPass}
	}

	var badPerms []string
	var foundKey bool

	for _, name := range candidateKeyNames {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		foundKey = true

		// Private keys must be 0600 or tighter
		if info.Mode().Perm()&0077 != 0 {
			badPerms = append(badPerms, name)
		}
	}

	if !foundKey {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "No private keys to check",
		}
	}

	if len(badPerms) > 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Insecure permissions on: %v", badPerms),
			Suggestion: "Fix: chmod 600 ~/.ssh/<keyfile>",
			Fixable:    true,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Private key permissions OK",
	}
}

func (c *KeyPermissionsCheck) Fix() error {
	dir := c.sshDir()
	if dir == "" {
		return nil
	}

	for _, name := range candidateKeyNames {
		keyPath := filepath.Join(dir, name)
		info, err := os.Stat(keyPath)
		if err != nil {
			continue
		}

		if info.Mode().Perm()&0077 != 0 {
			if err := os.Chmod(keyPath, 0600); err != nil {
				return fmt.Errorf("failed to fix permissions on %s: %w", keyPath, err)
			}
		}
	}

	return nil
}

// NewSSHChecks creates all SSH environment checks.
func NewSSHChecks() []Check {
	return []Check{
		&KeyCheck{},
		&AgentCheck{},
		&KeyPermissionsCheck{},
	}
}
