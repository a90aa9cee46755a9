package config

import (
	"fmt"
	"os"

	"github.com/rileyhilliard/knock/internal/errors"
	"github.com/rileyhilliard/knock/internal/sshconfig"
	"github.com/rileyhilliard/knock/pkg/probe"
)

// Probe materializes a config target into the inputs for one probe
// invocation: the target address, the username, the ordered credentials,
// and the probe options.
func (c *Config) Probe(name string) (probe.Target, string, []probe.Credential, probe.Options, error) {
	entry, ok := c.Targets[name]
	if !ok {
		return probe.Target{}, "", nil, probe.Options{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("No target named %q in config", name),
			"Run 'knock probe --list' to see configured targets")
	}

	target := probe.Target{Host: entry.Host, Port: entry.Port}

	username := entry.Username
	if username == "" {
		username = c.Defaults.Username
	}

	credentials, err := BuildCredentials(entry.Credentials)
	if err != nil {
		return probe.Target{}, "", nil, probe.Options{}, err
	}

	opts := probe.Options{
		ConnectTimeout:     c.Defaults.ConnectTimeout,
		PerAttemptTimeout:  c.Defaults.AttemptTimeout,
		MaxPasswordRetries: c.Defaults.PasswordRetries,
		TrustPolicy:        c.TrustPolicyFor(entry),
	}

	return target, username, credentials, opts, nil
}

// BuildCredentials turns credential entries into probe credentials,
// resolving environment references and loading key files.
func BuildCredentials(entries []CredentialEntry) ([]probe.Credential, error) {
	credentials := make([]probe.Credential, 0, len(entries))

	for i, entry := range entries {
		switch entry.Type {
		case CredPassword:
			secret := entry.Password
			if entry.PasswordEnv != "" {
				secret = os.Getenv(entry.PasswordEnv)
				if secret == "" {
					return nil, errors.New(errors.ErrConfig,
						fmt.Sprintf("Credential %d reads password from $%s, which is empty", i+1, entry.PasswordEnv),
						fmt.Sprintf("Export %s before probing", entry.PasswordEnv))
				}
			}
			credentials = append(credentials, probe.Password(secret))

		case CredKey:
			var passphrase []byte
			if entry.PassphraseEnv != "" {
				passphrase = []byte(os.Getenv(entry.PassphraseEnv))
			} else if entry.Passphrase != "" {
				passphrase = []byte(entry.Passphrase)
			}
			cred, err := probe.PublicKeyFile(sshconfig.ExpandPath(entry.Identity), passphrase)
			if err != nil {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					fmt.Sprintf("Cannot load private key %s", entry.Identity),
					"Check the path and permissions of the key file")
			}
			credentials = append(credentials, cred)

		case CredAgent:
			credentials = append(credentials, probe.Agent())

		default:
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Unknown credential type %q", entry.Type),
				"Supported types: password, key, agent")
		}
	}

	return credentials, nil
}

// TrustPolicyFor picks the trust policy for a target: a pinned fingerprint
// wins over the configured default policy.
func (c *Config) TrustPolicyFor(entry TargetEntry) probe.TrustPolicy {
	if entry.Fingerprint != "" {
		return probe.PinnedKey(entry.Fingerprint)
	}

	store := c.Defaults.KnownHosts
	if store == "" {
		store = sshconfig.DefaultKnownHostsPath()
	} else {
		store = sshconfig.ExpandPath(store)
	}

	switch c.Defaults.TrustPolicy {
	case PolicyFirstUse:
		return probe.TrustOnFirstUse(store)
	case PolicyInsecure:
		return probe.InsecureAcceptAny()
	default:
		return probe.StrictKnownHosts(store)
	}
}
