package doctor

import (
	"fmt"

	"github.com/rileyhilliard/knock/internal/config"
)

// ConfigCheck verifies the knock config file loads and validates.
type ConfigCheck struct {
	// ExplicitPath is the --config flag value, empty for discovery.
	ExplicitPath string
}

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return "Config" }

func (c *ConfigCheck) Run() CheckResult {
	path, err := config.Find(c.ExplicitPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Config file not found: %v", err),
			Suggestion: "Check the --config path",
		}
	}

	if path == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No " + config.ConfigFileName + " found",
			Suggestion: "Create one with: knock init (targets can also be passed as arguments)",
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Config does not load: %v", err),
			Suggestion: "Inspect " + path,
		}
	}

	if err := config.Validate(cfg); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Config invalid: %v", err),
			Suggestion: "Inspect " + path,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Config OK: %s (%d target%s)", path, len(cfg.Targets), pluralize(len(cfg.Targets))),
	}
}

func (c *ConfigCheck) Fix() error { return nil }

// NewConfigChecks creates all config checks.
func NewConfigChecks(explicitPath string) []Check {
	return []Check{
		&ConfigCheck{ExplicitPath: explicitPath},
	}
}
