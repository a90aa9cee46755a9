package probe

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/crypto/ssh/knownhosts"
)

// InvalidArgumentError reports a probe contract violation, such as an empty
// credential list. These are the only failures Probe returns as errors.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// NetErrorKind categorizes a network-level dial failure.
type NetErrorKind int

const (
	// NetUnreachable covers routing and DNS failures.
	NetUnreachable NetErrorKind = iota
	// NetRefused means the target actively refused the connection.
	NetRefused
	// NetTimeout means the dial exceeded the connect timeout.
	NetTimeout
)

// String returns a human-readable kind name.
func (k NetErrorKind) String() string {
	switch k {
	case NetUnreachable:
		return "unreachable"
	case NetRefused:
		return "refused"
	case NetTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// NetError describes a failure to reach the target at the transport level.
type NetError struct {
	Kind NetErrorKind
	Addr string
	Err  error
}

func (e *NetError) Error() string {
	return fmt.Sprintf("dial %s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *NetError) Unwrap() error {
	return e.Err
}

// KeyMismatchError means the server presented a host key that contradicts
// the trust policy's recorded or pinned key. This is never bypassed.
type KeyMismatchError struct {
	Host        string
	Fingerprint string // SHA256 fingerprint of the key the server sent
	KnownHosts  string // path of the store holding the conflicting entry, if any
	Want        []knownhosts.KnownKey
}

func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent key %s", e.Host, e.Fingerprint)
}

// Suggestion returns actionable steps to resolve the mismatch.
func (e *KeyMismatchError) Suggestion() string {
	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	store := e.KnownHosts
	if store == "" {
		store = "the trust store"
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's recorded in %s.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  If the server was legitimately reinstalled, remove the old entry:\n"+
			"    ssh-keygen -R %s",
		store, wantStr, e.Fingerprint, e.Host)
}

// UnknownHostKeyError means a strict trust policy has no entry for the host.
type UnknownHostKeyError struct {
	Host        string
	Fingerprint string
	KnownHosts  string
}

func (e *UnknownHostKeyError) Error() string {
	return fmt.Sprintf("no recorded host key for %s (server sent %s)", e.Host, e.Fingerprint)
}

// Suggestion returns actionable steps to record the host key.
func (e *UnknownHostKeyError) Suggestion() string {
	host := stripPort(e.Host)
	store := e.KnownHosts
	if store == "" {
		store = "~/.ssh/known_hosts"
	}
	return fmt.Sprintf(
		"The host isn't in %s yet. Record its key after verifying the fingerprint:\n"+
			"  ssh-keyscan -t rsa,ecdsa,ed25519 %s >> %s",
		store, host, store)
}

// AuthExhaustedError means every credential was attempted and none succeeded.
// It carries the full attempt sequence for the verdict.
type AuthExhaustedError struct {
	Attempts []AttemptResult
}

func (e *AuthExhaustedError) Error() string {
	return fmt.Sprintf("all %d credential(s) rejected", len(e.Attempts))
}

// EncryptedKeyError is returned when a private key requires a passphrase
// that wasn't supplied.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	if e.Path == "" {
		return "private key is encrypted (passphrase required)"
	}
	return fmt.Sprintf("private key at %s is encrypted (passphrase required)", e.Path)
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
