// Package sshconfig resolves probe targets from ~/.ssh/config.
//
// A target spec can be an alias from the SSH config, a plain hostname, a
// user@host pair, or any of those with a :port suffix. Resolution fills in
// whatever the spec leaves out from the config file, falling back to
// sensible defaults.
package sshconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// Settings holds resolved connection parameters for one target spec.
type Settings struct {
	Host         string // hostname to dial (possibly rewritten by HostName)
	Port         int    // 0 means the SSH default
	User         string
	IdentityFile string // expanded path, empty when not configured
}

// DefaultPath returns the user's SSH config path.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".ssh", "config")
}

// DefaultKnownHostsPath returns the user's known_hosts path.
func DefaultKnownHostsPath() string {
	return filepath.Join(homeDir(), ".ssh", "known_hosts")
}

// Resolve parses spec and fills in settings from the default SSH config.
func Resolve(spec string) Settings {
	return ResolveFile(spec, DefaultPath())
}

// ResolveFile is Resolve against a specific config file.
func ResolveFile(spec, configPath string) Settings {
	settings := Settings{User: currentUser()}

	// user@host takes precedence over any configured User.
	host := spec
	explicitUser := false
	if at := strings.Index(host, "@"); at != -1 {
		settings.User = host[:at]
		host = host[at+1:]
		explicitUser = true
	}

	// Trailing :port, if it is all digits.
	if colon := strings.LastIndex(host, ":"); colon != -1 {
		if port, err := strconv.Atoi(host[colon+1:]); err == nil && port > 0 {
			settings.Port = port
			host = host[:colon]
		}
	}

	settings.Host = host

	cfg, err := decodeConfig(configPath)
	if err != nil {
		return settings
	}

	if hostname, _ := cfg.Get(host, "HostName"); hostname != "" {
		settings.Host = hostname
	}
	if settings.Port == 0 {
		if port, _ := cfg.Get(host, "Port"); port != "" {
			if p, err := strconv.Atoi(port); err == nil {
				settings.Port = p
			}
		}
	}
	if !explicitUser {
		if user, _ := cfg.Get(host, "User"); user != "" {
			settings.User = user
		}
	}
	if identity, _ := cfg.Get(host, "IdentityFile"); identity != "" {
		settings.IdentityFile = ExpandPath(identity)
	}

	return settings
}

// Entry is a concrete host entry parsed from an SSH config file.
type Entry struct {
	Alias        string
	Hostname     string
	User         string
	Port         string
	IdentityFile string
}

// Description returns a user-friendly summary of the entry.
func (e Entry) Description() string {
	var parts []string
	if e.Hostname != "" && e.Hostname != e.Alias {
		parts = append(parts, e.Hostname)
	}
	if e.User != "" {
		parts = append(parts, "user: "+e.User)
	}
	if e.Port != "" && e.Port != "22" {
		parts = append(parts, "port: "+e.Port)
	}
	if len(parts) == 0 {
		return e.Alias
	}
	return strings.Join(parts, ", ")
}

// List parses the default SSH config and returns its concrete host entries.
func List() ([]Entry, error) {
	return ListFile(DefaultPath())
}

// ListFile parses the given SSH config file, skipping wildcard patterns.
func ListFile(configPath string) ([]Entry, error) {
	cfg, err := decodeConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // no SSH config is fine
		}
		return nil, err
	}

	var entries []Entry
	seen := make(map[string]bool)

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?") || seen[alias] {
				continue
			}
			seen[alias] = true

			entry := Entry{Alias: alias}
			entry.Hostname, _ = cfg.Get(alias, "HostName")
			entry.User, _ = cfg.Get(alias, "User")
			entry.Port, _ = cfg.Get(alias, "Port")
			if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
				entry.IdentityFile = ExpandPath(identity)
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// decodeConfig reads and parses an SSH config file. Content from the first
// Match directive onward is dropped: the ssh_config library doesn't support
// Match blocks, and a partial parse beats none.
func decodeConfig(configPath string) (*ssh_config.Config, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			lines = lines[:i]
			break
		}
	}

	return ssh_config.Decode(bytes.NewReader([]byte(strings.Join(lines, "\n"))))
}

// ExpandPath expands a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}
