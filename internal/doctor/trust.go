package doctor

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/rileyhilliard/knock/internal/sshconfig"
)

// KnownHostsCheck verifies the trust store exists, parses, and isn't
// readable by other users.
type KnownHostsCheck struct {
	// Path overrides ~/.ssh/known_hosts, mainly for tests.
	Path string
}

func (c *KnownHostsCheck) Name() string     { return "known_hosts" }
func (c *KnownHostsCheck) Category() string { return "Trust store" }

func (c *KnownHostsCheck) path() string {
	if c.Path != "" {
		return c.Path
	}
	return sshconfig.DefaultKnownHostsPath()
}

func (c *KnownHostsCheck) Run() CheckResult {
	path := c.path()
	if path == "" {
		return CheckResult{Name: c.Name(), Status: StatusPass}
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No known_hosts file",
			Suggestion: "Strict host key checking will reject every host; seed it with: ssh-keyscan <host> >> ~/.ssh/known_hosts",
		}
	}
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Cannot read known_hosts: %v", err),
			Suggestion: "Check permissions on " + path,
		}
	}

	entries, malformed, err := scanKnownHosts(path)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Cannot read known_hosts: %v", err),
			Suggestion: "Check permissions on " + path,
		}
	}

	if malformed > 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("known_hosts has %d malformed line%s", malformed, pluralize(malformed)),
			Suggestion: "Inspect " + path + " and remove the broken entries",
		}
	}

	if info.Mode().Perm()&0022 != 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "known_hosts is writable by other users",
			Suggestion: "Fix: chmod 644 " + path,
			Fixable:    true,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("known_hosts OK (%d entr%s)", entries, pluralizeY(entries)),
	}
}

func (c *KnownHostsCheck) Fix() error {
	path := c.path()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return os.Chmod(path, 0644)
}

// scanKnownHosts counts parseable and malformed entries.
func scanKnownHosts(path string) (entries, malformed int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, _, _, _, _, parseErr := ssh.ParseKnownHosts([]byte(line)); parseErr != nil {
			malformed++
			continue
		}
		entries++
	}

	return entries, malformed, scanner.Err()
}

func pluralizeY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// NewTrustChecks creates all trust store checks.
func NewTrustChecks(knownHostsPath string) []Check {
	return []Check{
		&KnownHostsCheck{Path: knownHostsPath},
	}
}
