package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/knock/internal/config"
	"github.com/rileyhilliard/knock/internal/errors"
	"github.com/rileyhilliard/knock/internal/runner"
	"github.com/rileyhilliard/knock/internal/sshconfig"
	"github.com/rileyhilliard/knock/internal/ui"
	"github.com/rileyhilliard/knock/pkg/probe"
)

var probeFlags struct {
	user           string
	passwordEnv    string
	askPass        bool
	identities     []string
	passphraseEnv  string
	agent          bool
	policy         string
	knownHosts     string
	fingerprint    string
	connectTimeout time.Duration
	attemptTimeout time.Duration
	retries        int
	tag            string
	pick           bool
	parallel       int
	failFast       bool
	jsonOut        bool
	yamlOut        bool
}

var probeCmd = &cobra.Command{
	Use:   "probe [target...]",
	Short: "Probe SSH servers with the given credentials",
	Long: `Probe one or more SSH servers and report whether authentication works.

Targets are either [user@]host[:port] specs (resolved through your SSH
config) or names from .knock.yaml. With no arguments, every configured
target is probed.

Credentials are attempted in order until one succeeds: the agent (--agent),
identity files (--identity, repeatable), then a password (--ask-pass or
--password-env). Targets from .knock.yaml bring their own credential list.

Examples:
  knock probe deploy@web.example.com --agent
  knock probe web.example.com:2222 --user deploy --ask-pass
  knock probe backup-host --identity ~/.ssh/backup_ed25519
  knock probe --tag prod --parallel 16
  knock probe web-1 --fingerprint SHA256:xxxx --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return probeCommand(cmd, args)
	},
}

func init() {
	f := probeCmd.Flags()
	f.StringVarP(&probeFlags.user, "user", "u", "", "username to authenticate as")
	f.StringVar(&probeFlags.passwordEnv, "password-env", "", "environment variable holding the password")
	f.BoolVar(&probeFlags.askPass, "ask-pass", false, "prompt for a password")
	f.StringArrayVarP(&probeFlags.identities, "identity", "i", nil, "private key file (repeatable)")
	f.StringVar(&probeFlags.passphraseEnv, "passphrase-env", "", "environment variable holding the key passphrase")
	f.BoolVar(&probeFlags.agent, "agent", false, "offer keys from the SSH agent")
	f.StringVar(&probeFlags.policy, "policy", "", "host key trust policy: known_hosts, first_use, insecure")
	f.StringVar(&probeFlags.knownHosts, "known-hosts", "", "trust store path (default ~/.ssh/known_hosts)")
	f.StringVar(&probeFlags.fingerprint, "fingerprint", "", "pin the host key to this SHA256 fingerprint")
	f.DurationVar(&probeFlags.connectTimeout, "connect-timeout", probe.DefaultConnectTimeout, "TCP dial timeout")
	f.DurationVar(&probeFlags.attemptTimeout, "attempt-timeout", probe.DefaultPerAttemptTimeout, "per-credential handshake timeout")
	f.IntVar(&probeFlags.retries, "retries", 1, "in-handshake tries for a password credential")
	f.StringVar(&probeFlags.tag, "tag", "", "select config targets by tag")
	f.BoolVar(&probeFlags.pick, "pick", false, "pick one configured target interactively")
	f.IntVar(&probeFlags.parallel, "parallel", 0, "max concurrent probes")
	f.BoolVar(&probeFlags.failFast, "fail-fast", false, "stop after the first failed probe")
	f.BoolVar(&probeFlags.jsonOut, "json", false, "output verdicts as JSON")
	f.BoolVar(&probeFlags.yamlOut, "yaml", false, "output verdicts as YAML")

	rootCmd.AddCommand(probeCmd)
}

func probeCommand(cmd *cobra.Command, args []string) error {
	jobs, err := buildJobs(cmd, args)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		if probeFlags.pick {
			fmt.Println("Cancelled.")
			return nil
		}
		return errors.New(errors.ErrConfig,
			"Nothing to probe",
			"Pass a target like deploy@host, or add targets to .knock.yaml")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := runner.Config{
		MaxParallel: probeFlags.parallel,
		FailFast:    probeFlags.failFast,
	}

	var events runner.Events
	interactive := !probeFlags.jsonOut && !probeFlags.yamlOut && !quietFlag
	switch {
	case interactive && len(jobs) > 1:
		events = &lineEvents{}
	case interactive && ui.IsTerminal(os.Stdout):
		events = &spinnerEvents{}
	}

	result, err := runner.New(jobs, cfg, events).Run(ctx)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrProbe,
			"Probe run aborted",
			"The run was cancelled before any verdict was reached")
	}

	if err := renderProbeResult(result, len(jobs)); err != nil {
		return err
	}

	if code := result.ExitCode(); code != probe.ExitConnected {
		return errors.NewExitError(code)
	}
	return nil
}

// lineEvents prints one line per finished probe as results arrive.
type lineEvents struct{}

func (e *lineEvents) JobStarted(string, probe.Target) {}

func (e *lineEvents) JobCompleted(result runner.JobResult) {
	if result.Verdict != nil {
		fmt.Println(ui.RenderVerdictLine(result.Verdict))
	}
}

// spinnerEvents animates a spinner for the duration of a single probe.
type spinnerEvents struct {
	spinner *ui.Spinner
}

func (e *spinnerEvents) JobStarted(name string, target probe.Target) {
	e.spinner = ui.NewSpinner(fmt.Sprintf("probing %s", name))
	e.spinner.Start()
}

func (e *spinnerEvents) JobCompleted(runner.JobResult) {
	if e.spinner != nil {
		e.spinner.Stop()
		e.spinner.Clear()
	}
}

// renderProbeResult writes the final output in the selected format.
func renderProbeResult(result *runner.Result, jobCount int) error {
	switch {
	case probeFlags.jsonOut:
		return WriteJSONSuccess(os.Stdout, verdictsOf(result))
	case probeFlags.yamlOut:
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(verdictsOf(result))
	case jobCount == 1:
		jr := result.JobResults[0]
		if jr.Err != nil {
			return jr.Err
		}
		cfg := ui.DefaultVerdictConfig()
		if quietFlag {
			cfg = ui.VerdictConfig{}
		}
		ui.RenderVerdict(os.Stdout, jr.Verdict, cfg)
		return nil
	default:
		if quietFlag {
			fmt.Println(runner.FormatBriefSummary(result))
			return nil
		}
		runner.RenderSummary(result)
		return nil
	}
}

func verdictsOf(result *runner.Result) []*probe.Verdict {
	verdicts := make([]*probe.Verdict, 0, len(result.JobResults))
	for i := range result.JobResults {
		if v := result.JobResults[i].Verdict; v != nil {
			verdicts = append(verdicts, v)
		}
	}
	return verdicts
}

// buildJobs turns command arguments (or config targets) into runner jobs.
func buildJobs(cmd *cobra.Command, args []string) ([]runner.Job, error) {
	if len(args) > 0 {
		return buildSpecJobs(cmd, args)
	}
	return buildConfigJobs(cmd)
}

// buildSpecJobs probes ad-hoc [user@]host[:port] specs. Config target names
// are accepted too and resolve through .knock.yaml.
func buildSpecJobs(cmd *cobra.Command, args []string) ([]runner.Job, error) {
	cfg := loadConfigIfPresent()

	jobs := make([]runner.Job, 0, len(args))
	for _, spec := range args {
		if cfg != nil {
			if _, ok := cfg.Targets[spec]; ok {
				job, err := configJob(cmd, cfg, spec)
				if err != nil {
					return nil, err
				}
				jobs = append(jobs, job)
				continue
			}
		}

		job, err := specJob(cmd, spec)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// specJob resolves one target spec through the SSH config and the probe
// flags.
func specJob(cmd *cobra.Command, spec string) (runner.Job, error) {
	settings := sshconfig.Resolve(spec)

	username := settings.User
	if probeFlags.user != "" {
		username = probeFlags.user
	}

	credentials, err := flagCredentials(settings.IdentityFile)
	if err != nil {
		return runner.Job{}, err
	}

	opts := probe.Options{
		ConnectTimeout:     probeFlags.connectTimeout,
		PerAttemptTimeout:  probeFlags.attemptTimeout,
		MaxPasswordRetries: probeFlags.retries,
		TrustPolicy:        flagTrustPolicy(),
	}

	return runner.Job{
		Name:        spec,
		Target:      probe.Target{Host: settings.Host, Port: settings.Port},
		Username:    username,
		Credentials: credentials,
		Options:     opts,
	}, nil
}

// buildConfigJobs probes every configured target, honoring --tag. With
// --pick the target is chosen interactively instead.
func buildConfigJobs(cmd *cobra.Command) ([]runner.Job, error) {
	cfg, err := requireConfig()
	if err != nil {
		return nil, err
	}

	if probeFlags.pick {
		name, err := pickTargetName(cfg)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, nil // cancelled
		}
		job, err := configJob(cmd, cfg, name)
		if err != nil {
			return nil, err
		}
		return []runner.Job{job}, nil
	}

	names := cfg.TargetNames()
	jobs := make([]runner.Job, 0, len(names))
	for _, name := range names {
		if probeFlags.tag != "" && !cfg.Targets[name].HasTag(probeFlags.tag) {
			continue
		}
		job, err := configJob(cmd, cfg, name)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// pickTargetName shows the interactive target picker over the configured
// targets. Returns "" when the user cancels.
func pickTargetName(cfg *config.Config) (string, error) {
	names := cfg.TargetNames()
	targets := make([]ui.TargetInfo, len(names))
	for i, name := range names {
		entry := cfg.Targets[name]
		username := entry.Username
		if username == "" {
			username = cfg.Defaults.Username
		}
		targets[i] = ui.TargetInfo{
			Name: name,
			Addr: probe.Target{Host: entry.Host, Port: entry.Port}.Addr(),
			User: username,
			Tags: entry.Tags,
		}
	}

	picked, err := ui.PickTarget(targets)
	if err != nil {
		return "", err
	}
	if picked == nil {
		return "", nil
	}
	return picked.Name, nil
}

// configJob materializes a config target, letting explicitly set flags win
// over config defaults.
func configJob(cmd *cobra.Command, cfg *config.Config, name string) (runner.Job, error) {
	target, username, credentials, opts, err := cfg.Probe(name)
	if err != nil {
		return runner.Job{}, err
	}

	if probeFlags.user != "" {
		username = probeFlags.user
	}
	if cmd.Flags().Changed("connect-timeout") {
		opts.ConnectTimeout = probeFlags.connectTimeout
	}
	if cmd.Flags().Changed("attempt-timeout") {
		opts.PerAttemptTimeout = probeFlags.attemptTimeout
	}
	if cmd.Flags().Changed("retries") {
		opts.MaxPasswordRetries = probeFlags.retries
	}
	if cmd.Flags().Changed("policy") || cmd.Flags().Changed("fingerprint") || cmd.Flags().Changed("known-hosts") {
		opts.TrustPolicy = flagTrustPolicy()
	}

	return runner.Job{
		Name:        name,
		Target:      target,
		Username:    username,
		Credentials: credentials,
		Options:     opts,
	}, nil
}

// flagCredentials builds the ordered credential list from probe flags,
// mirroring OpenSSH's agent, key file, password preference.
func flagCredentials(configIdentity string) ([]probe.Credential, error) {
	var credentials []probe.Credential

	if probeFlags.agent {
		credentials = append(credentials, probe.Agent())
	}

	identities := probeFlags.identities
	if len(identities) == 0 && !probeFlags.agent && probeFlags.passwordEnv == "" && !probeFlags.askPass && configIdentity != "" {
		// No credential flags at all: fall back to the IdentityFile the SSH
		// config names for this host.
		identities = []string{configIdentity}
	}

	var passphrase []byte
	if probeFlags.passphraseEnv != "" {
		passphrase = []byte(os.Getenv(probeFlags.passphraseEnv))
	}
	for _, path := range identities {
		cred, err := probe.PublicKeyFile(sshconfig.ExpandPath(path), passphrase)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Cannot load private key %s", path),
				"Check the path and permissions of the key file")
		}
		credentials = append(credentials, cred)
	}

	if probeFlags.passwordEnv != "" {
		secret := os.Getenv(probeFlags.passwordEnv)
		if secret == "" {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("$%s is empty", probeFlags.passwordEnv),
				fmt.Sprintf("Export %s before probing", probeFlags.passwordEnv))
		}
		credentials = append(credentials, probe.Password(secret))
	} else if probeFlags.askPass {
		secret, err := promptPassword()
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, probe.Password(secret))
	}

	if len(credentials) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No credentials to try",
			"Pass --agent, --identity, --ask-pass, or --password-env")
	}

	return credentials, nil
}

// promptPassword reads a password from the terminal without echo.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New(errors.ErrConfig,
			"--ask-pass needs a terminal",
			"Use --password-env when running non-interactively")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Could not read password",
			"Use --password-env when running non-interactively")
	}
	return string(secret), nil
}

// flagTrustPolicy builds the trust policy from probe flags.
func flagTrustPolicy() probe.TrustPolicy {
	if probeFlags.fingerprint != "" {
		return probe.PinnedKey(probeFlags.fingerprint)
	}

	store := probeFlags.knownHosts
	if store == "" {
		store = sshconfig.DefaultKnownHostsPath()
	} else {
		store = sshconfig.ExpandPath(store)
	}

	switch probeFlags.policy {
	case config.PolicyFirstUse:
		return probe.TrustOnFirstUse(store)
	case config.PolicyInsecure:
		return probe.InsecureAcceptAny()
	default:
		return probe.StrictKnownHosts(store)
	}
}

// loadConfigIfPresent loads the discovered config, or nil when there is
// none. Load errors surface later through requireConfig or doctor.
func loadConfigIfPresent() *config.Config {
	path, err := config.Find(Config())
	if err != nil || path == "" {
		return nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil
	}
	if err := config.Validate(cfg); err != nil {
		return nil
	}
	return cfg
}

// requireConfig loads and validates the discovered config, erroring when
// there is none.
func requireConfig() (*config.Config, error) {
	path, err := config.Find(Config())
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.New(errors.ErrConfig,
			"No "+config.ConfigFileName+" found",
			"Create one with 'knock init', or pass targets as arguments")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
