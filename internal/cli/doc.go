// Package cli implements the knock command-line interface.
//
// The package is organized around Cobra commands, with each command
// delegating to the probe, runner, and doctor packages for the actual
// work. The general structure follows a clean separation between:
//
//   - Command definitions (cobra.Command instances)
//   - Job construction (flags + config resolved into runner.Job values)
//   - Implementation details (in other internal packages)
//
// # Command Structure
//
// The root command is "knock" with subcommands for different operations:
//
//	knock probe [target...] - Verify SSH connectivity and authentication
//	knock hosts             - List hosts from ~/.ssh/config
//	knock init              - Create .knock.yaml config
//	knock doctor            - Diagnose local SSH environment issues
//	knock version           - Show version information
//
// # Probe Pipeline
//
// The probe command resolves each argument to a runner.Job:
//
//  1. A name matching a configured target uses that target's settings.
//  2. Anything else is treated as [user@]host[:port], with missing
//     pieces filled in from ~/.ssh/config.
//  3. With no arguments, every configured target is probed (optionally
//     filtered by --tag, or chosen interactively with --pick).
//
// Jobs run through runner.Runner with bounded parallelism, and the
// worst per-target exit code becomes the process exit code:
//
//	0 - connected
//	1 - authentication failed
//	2 - host key mismatch
//	3 - network unreachable or timed out
//
// Exit codes propagate through Cobra via ExitError rather than calling
// os.Exit inside command handlers, so deferred cleanup still runs.
//
// # Flag Handling
//
// Global flags (--config, --quiet, --no-color) are defined on the root
// command and available to all subcommands. Probe flags that overlap
// with config settings (timeouts, retries, trust policy) only override
// a configured target when explicitly passed, checked via Changed.
package cli
