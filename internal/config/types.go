package config

import (
	"sort"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Trust policy names accepted in config and on the command line.
const (
	PolicyKnownHosts = "known_hosts"
	PolicyFirstUse   = "first_use"
	PolicyPinned     = "pinned"
	PolicyInsecure   = "insecure"
)

// Config represents the complete .knock.yaml configuration file.
type Config struct {
	Version  int                    `yaml:"version" mapstructure:"version"`
	Defaults Defaults               `yaml:"defaults" mapstructure:"defaults"`
	Targets  map[string]TargetEntry `yaml:"targets" mapstructure:"targets"`
}

// Defaults apply to every target unless the target overrides them.
type Defaults struct {
	// Username to authenticate as.
	Username string `yaml:"username" mapstructure:"username"`

	// ConnectTimeout bounds the TCP dial per target.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// AttemptTimeout bounds each credential attempt.
	AttemptTimeout time.Duration `yaml:"attempt_timeout" mapstructure:"attempt_timeout"`

	// PasswordRetries bounds retries for a single password credential.
	PasswordRetries int `yaml:"password_retries" mapstructure:"password_retries"`

	// TrustPolicy: known_hosts, first_use, pinned, or insecure.
	TrustPolicy string `yaml:"trust_policy" mapstructure:"trust_policy"`

	// KnownHosts is the trust store path for known_hosts and first_use.
	// Supports ~/ expansion. Empty means ~/.ssh/known_hosts.
	KnownHosts string `yaml:"known_hosts" mapstructure:"known_hosts"`
}

// TargetEntry defines one probe target and its credentials.
type TargetEntry struct {
	// Host is the hostname or address to dial. Required.
	Host string `yaml:"host" mapstructure:"host"`

	// Port defaults to 22.
	Port int `yaml:"port" mapstructure:"port"`

	// Username overrides the default username for this target.
	Username string `yaml:"username" mapstructure:"username"`

	// Fingerprint pins the host key (SHA256:... form). Setting it switches
	// this target to the pinned trust policy.
	Fingerprint string `yaml:"fingerprint" mapstructure:"fingerprint"`

	// Tags for filtering targets with --tag.
	Tags []string `yaml:"tags" mapstructure:"tags"`

	// Credentials are attempted in order until one succeeds.
	Credentials []CredentialEntry `yaml:"credentials" mapstructure:"credentials"`
}

// Credential type names accepted in config.
const (
	CredPassword = "password"
	CredKey      = "key"
	CredAgent    = "agent"
)

// CredentialEntry defines one credential in a target's attempt order.
// Secrets can be inlined or pulled from the environment; the _env variants
// win when both are set.
type CredentialEntry struct {
	// Type: password, key, or agent.
	Type string `yaml:"type" mapstructure:"type"`

	// Password (type password). Prefer PasswordEnv for anything real.
	Password    string `yaml:"password,omitempty" mapstructure:"password"`
	PasswordEnv string `yaml:"password_env,omitempty" mapstructure:"password_env"`

	// Identity is the private key path (type key). Supports ~/ expansion.
	Identity      string `yaml:"identity,omitempty" mapstructure:"identity"`
	Passphrase    string `yaml:"passphrase,omitempty" mapstructure:"passphrase"`
	PassphraseEnv string `yaml:"passphrase_env,omitempty" mapstructure:"passphrase_env"`
}

// HasTag reports whether the target carries the given tag.
func (t TargetEntry) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// TargetNames returns the configured target names in sorted order.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Defaults: Defaults{
			ConnectTimeout:  5 * time.Second,
			AttemptTimeout:  10 * time.Second,
			PasswordRetries: 1,
			TrustPolicy:     PolicyKnownHosts,
		},
		Targets: make(map[string]TargetEntry),
	}
}
