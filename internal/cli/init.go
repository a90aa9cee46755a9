package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/knock/internal/config"
	"github.com/rileyhilliard/knock/internal/errors"
	"github.com/rileyhilliard/knock/internal/ui"
)

var (
	initHostFlag string
	initUserFlag string
	initForce    bool
	initNonInter bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .knock.yaml configuration",
	Long: `Initialize a knock configuration file in the current directory.

Prompts for a first target and writes a starter config with commented
examples for every credential type.

Examples:
  knock init
  knock init --host web.example.com --user deploy
  knock init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand()
	},
}

func init() {
	initCmd.Flags().StringVar(&initHostFlag, "host", "", "hostname of the first target")
	initCmd.Flags().StringVar(&initUserFlag, "user", "", "username for the first target")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config")
	initCmd.Flags().BoolVar(&initNonInter, "non-interactive", false, "skip prompts, use flags and defaults")
	rootCmd.AddCommand(initCmd)
}

func initCommand() error {
	configPath := filepath.Join(".", config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !initForce {
		if initNonInter {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	host := initHostFlag
	username := initUserFlag

	if !initNonInter && host == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Target host").
					Description("Hostname or address of the first SSH server to probe").
					Placeholder("web.example.com").
					Value(&host).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("host is required")
						}
						return nil
					}),
			),
			huh.NewGroup(
				huh.NewInput().
					Title("Username").
					Description("User to authenticate as").
					Placeholder("deploy").
					Value(&username).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("username is required")
						}
						return nil
					}),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Check terminal compatibility or use --non-interactive with --host and --user")
		}
	}

	if host == "" {
		return errors.New(errors.ErrConfig,
			"A target host is required",
			"Pass --host, or run interactively")
	}
	if username == "" {
		username = "root"
	}

	content, err := starterConfig(host, username)
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}

	fmt.Printf("%s Created %s\n\n", ui.SymbolSuccess, configPath)
	fmt.Println("Next steps:")
	fmt.Printf("  knock probe %s   - Probe the new target\n", "main")
	fmt.Println("  knock probe       - Probe every configured target")
	fmt.Println("  knock doctor      - Check your SSH environment")

	return nil
}

// starterConfig renders the initial .knock.yaml content.
func starterConfig(host, username string) ([]byte, error) {
	cfg := config.DefaultConfig()
	cfg.Defaults.Username = username
	cfg.Targets["main"] = config.TargetEntry{
		Host: host,
		Credentials: []config.CredentialEntry{
			{Type: config.CredAgent},
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}

	header := `# knock configuration
# Run 'knock probe' to verify SSH connectivity to your targets.
#
# Credential types:
#   - type: agent                              # keys from ssh-agent
#   - type: key                                # a private key file
#     identity: ~/.ssh/id_ed25519
#     passphrase_env: KEY_PASSPHRASE           # optional
#   - type: password
#     password_env: SSH_PASSWORD               # preferred over inline
#
# Pin a host key per target with:
#   fingerprint: SHA256:...

`
	return append([]byte(header), data...), nil
}
