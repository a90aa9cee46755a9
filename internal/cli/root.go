package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/knock/internal/errors"
)

// Global flags available to all subcommands.
var (
	configFlag  string
	noColorFlag bool
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "knock",
	Short: "Verify SSH connectivity and credentials",
	Long: `knock probes SSH servers to answer one question: can this user
authenticate with these credentials right now?

It attempts each credential in order, confirms a session on success, and
reports a structured verdict. The exit code encodes the outcome so scripts
and CI can branch on it:

  0  connected
  1  authentication failed
  2  host key mismatch
  3  network unreachable or timeout

Examples:
  knock probe deploy@web.example.com --agent
  knock probe web-1 db-1 --tag prod
  knock doctor`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to .knock.yaml (default: discovered)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress per-attempt output")
}

// Config returns the --config flag value.
func Config() string {
	return configFlag
}

// Execute runs the root command and exits with the verdict's code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// A probe that ran to completion carries its exit code; the verdict
		// is already on screen.
		if code, ok := errors.GetExitCode(err); ok {
			os.Exit(code)
		}

		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
