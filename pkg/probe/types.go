package probe

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultPort is the SSH port used when a Target doesn't specify one.
const DefaultPort = 22

// Default timeouts applied by Options.withDefaults.
const (
	DefaultConnectTimeout    = 5 * time.Second
	DefaultPerAttemptTimeout = 10 * time.Second
)

// Target identifies the SSH server being probed.
type Target struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// Addr returns the host:port dial address, applying the default port.
func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// String returns the target in host:port form, omitting the default port.
func (t Target) String() string {
	if t.Port == 0 || t.Port == DefaultPort {
		return t.Host
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// validate checks the target satisfies the probe contract.
func (t Target) validate() error {
	if t.Host == "" {
		return &InvalidArgumentError{Reason: "target host is empty"}
	}
	if t.Port < 0 || t.Port > 65535 {
		return &InvalidArgumentError{Reason: fmt.Sprintf("port %d out of range [1,65535]", t.Port)}
	}
	return nil
}

// Method names an SSH authentication method as it appears on the wire.
type Method string

const (
	// MethodPassword is SSH "password" authentication.
	MethodPassword Method = "password"
	// MethodPublicKey is SSH "publickey" authentication (key file or agent).
	MethodPublicKey Method = "publickey"
)

// Outcome is the result of a single credential attempt.
type Outcome string

const (
	// OutcomeSuccess means the server accepted the credential.
	OutcomeSuccess Outcome = "success"
	// OutcomeAuthRejected means the server explicitly denied the credential.
	OutcomeAuthRejected Outcome = "rejected"
	// OutcomeError means the attempt failed without a clear denial: the
	// server stalled past the per-attempt timeout, the credential material
	// was unusable, or the probe was cancelled mid-attempt.
	OutcomeError Outcome = "error"
)

// AttemptResult records one credential attempt. Immutable once recorded.
type AttemptResult struct {
	Method     Method        `json:"method" yaml:"method"`
	Credential string        `json:"credential" yaml:"credential"`
	Outcome    Outcome       `json:"outcome" yaml:"outcome"`
	Detail     string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Line formats the attempt as a single human-readable report line.
func (r AttemptResult) Line(username string, target Target) string {
	if r.Detail != "" {
		return fmt.Sprintf("%s attempt for %s@%s: %s (%s)", r.Method, username, target, r.Outcome, r.Detail)
	}
	return fmt.Sprintf("%s attempt for %s@%s: %s", r.Method, username, target, r.Outcome)
}

// HostKeyTrust is the trust decision for the server's host key.
type HostKeyTrust string

const (
	// TrustUnknown means the key was never verified, either because the
	// probe failed before the key exchange or because a strict policy had
	// no entry for the host.
	TrustUnknown HostKeyTrust = "unknown"
	// Trusted means the key matched the trust policy.
	Trusted HostKeyTrust = "trusted"
	// TrustMismatch means the key contradicts a previously recorded or
	// pinned key. Potential man-in-the-middle; the probe aborts.
	TrustMismatch HostKeyTrust = "mismatch"
)

// FinalOutcome is the terminal classification of a probe.
type FinalOutcome string

const (
	// Connected means at least one credential authenticated.
	Connected FinalOutcome = "connected"
	// AuthFailed means every credential was attempted and none succeeded.
	AuthFailed FinalOutcome = "auth_failed"
	// NetworkUnreachable means the target could not be dialed.
	NetworkUnreachable FinalOutcome = "network_unreachable"
	// HostKeyMismatch means the host key verification aborted the probe.
	HostKeyMismatch FinalOutcome = "host_key_mismatch"
	// Timeout means the dial or the overall probe deadline expired.
	Timeout FinalOutcome = "timeout"
)

// Exit code mapping for CLI wrappers.
const (
	ExitConnected   = 0
	ExitAuthFailed  = 1
	ExitHostKey     = 2
	ExitUnreachable = 3
)

// ExitCode maps a final outcome to a process exit code.
func (o FinalOutcome) ExitCode() int {
	switch o {
	case Connected:
		return ExitConnected
	case AuthFailed:
		return ExitAuthFailed
	case HostKeyMismatch:
		return ExitHostKey
	case NetworkUnreachable, Timeout:
		return ExitUnreachable
	default:
		return ExitUnreachable
	}
}

// Verdict is the structured result of one probe invocation. It is built
// incrementally by the pipeline and immutable once Probe returns.
type Verdict struct {
	Target             Target          `json:"target" yaml:"target"`
	Username           string          `json:"username" yaml:"username"`
	HostKeyTrust       HostKeyTrust    `json:"host_key_trust" yaml:"host_key_trust"`
	HostKeyFingerprint string          `json:"host_key_fingerprint,omitempty" yaml:"host_key_fingerprint,omitempty"`
	Attempts           []AttemptResult `json:"attempts" yaml:"attempts"`
	FinalOutcome       FinalOutcome    `json:"final_outcome" yaml:"final_outcome"`
	SessionConfirmed   bool            `json:"session_confirmed" yaml:"session_confirmed"`
	Elapsed            time.Duration   `json:"elapsed" yaml:"elapsed"`
}

// ExitCode maps the verdict to a process exit code.
func (v *Verdict) ExitCode() int {
	return v.FinalOutcome.ExitCode()
}

// AttemptLines renders one human-readable line per attempt.
func (v *Verdict) AttemptLines() []string {
	lines := make([]string, len(v.Attempts))
	for i, a := range v.Attempts {
		lines[i] = a.Line(v.Username, v.Target)
	}
	return lines
}

// Succeeded reports whether any attempt authenticated.
func (v *Verdict) Succeeded() bool {
	for _, a := range v.Attempts {
		if a.Outcome == OutcomeSuccess {
			return true
		}
	}
	return false
}

// Options configures a probe.
type Options struct {
	// ConnectTimeout bounds the TCP dial. Defaults to 5s.
	ConnectTimeout time.Duration

	// PerAttemptTimeout bounds each handshake attempt, guarding against a
	// server that accepts the connection but stalls during authentication.
	// Defaults to 10s.
	PerAttemptTimeout time.Duration

	// TrustPolicy decides whether the server's host key is accepted.
	// Defaults to accepting any key while still recording its fingerprint
	// (InsecureAcceptAny), matching ssh -o StrictHostKeyChecking=no.
	TrustPolicy TrustPolicy

	// MaxPasswordRetries bounds in-handshake retries for a single password
	// credential. Defaults to 1 (a single try, no re-prompts).
	MaxPasswordRetries int
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.PerAttemptTimeout <= 0 {
		o.PerAttemptTimeout = DefaultPerAttemptTimeout
	}
	if o.TrustPolicy == nil {
		o.TrustPolicy = InsecureAcceptAny()
	}
	if o.MaxPasswordRetries <= 0 {
		o.MaxPasswordRetries = 1
	}
	return o
}
