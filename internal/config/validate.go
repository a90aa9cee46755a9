package config

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/knock/internal/errors"
)

// Validate checks the config for structural problems and returns the first
// one found as a structured error.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Config version %d is newer than this build supports (%d)", cfg.Version, CurrentConfigVersion),
			"Update knock, or set version: 1 in your config")
	}

	if err := validatePolicy(cfg.Defaults.TrustPolicy); err != nil {
		return err
	}

	for name, target := range cfg.Targets {
		if err := validateTarget(name, target); err != nil {
			return err
		}
	}

	return nil
}

func validateTarget(name string, target TargetEntry) error {
	if target.Host == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Target %q has no host", name),
			"Add a host: entry with the address to probe")
	}

	if target.Port < 0 || target.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Target %q has port %d outside [1,65535]", name, target.Port),
			"Use a valid TCP port, or omit port: for 22")
	}

	if target.Fingerprint != "" && !strings.HasPrefix(target.Fingerprint, "SHA256:") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Target %q fingerprint doesn't look like a SHA256 fingerprint", name),
			"Use the SHA256:... form printed by: ssh-keygen -lf <keyfile>")
	}

	for i, cred := range target.Credentials {
		if err := validateCredential(name, i, cred); err != nil {
			return err
		}
	}

	return nil
}

func validateCredential(target string, index int, cred CredentialEntry) error {
	switch cred.Type {
	case CredPassword:
		if cred.Password == "" && cred.PasswordEnv == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Target %q credential %d has no password source", target, index+1),
				"Set password_env (preferred) or password")
		}
	case CredKey:
		if cred.Identity == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Target %q credential %d has no identity file", target, index+1),
				"Set identity: to the private key path")
		}
	case CredAgent:
		// Nothing to configure.
	case "":
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Target %q credential %d has no type", target, index+1),
			"Set type: password, key, or agent")
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Target %q credential %d has unknown type %q", target, index+1, cred.Type),
			"Supported types: password, key, agent")
	}
	return nil
}

func validatePolicy(policy string) error {
	switch policy {
	case "", PolicyKnownHosts, PolicyFirstUse, PolicyInsecure:
		return nil
	case PolicyPinned:
		return errors.New(errors.ErrConfig,
			"Trust policy 'pinned' cannot be a default",
			"Pin keys per target with fingerprint: instead")
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown trust policy %q", policy),
			"Supported policies: known_hosts, first_use, insecure")
	}
}
