package probe

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// TrustPolicy decides whether a server's host key is acceptable.
//
// Verify returns nil when the key is trusted, *UnknownHostKeyError when the
// policy has never seen the host, and *KeyMismatchError when the key
// contradicts a recorded or pinned one. Any error aborts the handshake.
type TrustPolicy interface {
	Verify(hostname string, remote net.Addr, key ssh.PublicKey) error

	// Name identifies the policy in reports and logs.
	Name() string
}

// StrictKnownHosts returns a policy that only trusts keys already present
// in the known_hosts file at path. Unknown hosts are not recorded.
func StrictKnownHosts(path string) TrustPolicy {
	return &strictKnownHosts{path: path}
}

type strictKnownHosts struct {
	path string
}

func (p *strictKnownHosts) Name() string { return "known-hosts" }

func (p *strictKnownHosts) Verify(hostname string, remote net.Addr, key ssh.PublicKey) error {
	callback, err := knownhosts.New(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &UnknownHostKeyError{
				Host:        hostname,
				Fingerprint: ssh.FingerprintSHA256(key),
				KnownHosts:  p.path,
			}
		}
		return fmt.Errorf("cannot load known_hosts %s: %w", p.path, err)
	}
	return translateKnownHostsErr(callback(hostname, remote, key), hostname, key, p.path)
}

// TrustOnFirstUse returns a policy that records a host's key on first
// contact and flags any later change. Writes to the store are serialized,
// so concurrent probes against the same new host race safely
// (last-writer-wins on identical content).
func TrustOnFirstUse(path string) TrustPolicy {
	return &trustOnFirstUse{path: path}
}

type trustOnFirstUse struct {
	path string
	mu   sync.Mutex
}

func (p *trustOnFirstUse) Name() string { return "first-use" }

func (p *trustOnFirstUse) Verify(hostname string, remote net.Addr, key ssh.PublicKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ensureKnownHostsFile(p.path); err != nil {
		return err
	}

	callback, err := knownhosts.New(p.path)
	if err != nil {
		return fmt.Errorf("cannot load known_hosts %s: %w", p.path, err)
	}

	verr := translateKnownHostsErr(callback(hostname, remote, key), hostname, key, p.path)
	var unknown *UnknownHostKeyError
	if stderrors.As(verr, &unknown) {
		return p.record(hostname, remote, key)
	}
	return verr
}

// record appends the host key to the store. Caller holds p.mu.
func (p *trustOnFirstUse) record(hostname string, remote net.Addr, key ssh.PublicKey) error {
	addr := knownhosts.Normalize(hostname)
	if remote != nil && remote.String() != hostname {
		// Record both the name dialed and the resolved address, the way
		// OpenSSH does with CheckHostIP.
		line := knownhosts.Line([]string{addr, knownhosts.Normalize(remote.String())}, key)
		return appendLine(p.path, line)
	}
	return appendLine(p.path, knownhosts.Line([]string{addr}, key))
}

// PinnedKey returns a policy that only trusts a key with the given SHA256
// fingerprint (the "SHA256:..." form printed by ssh-keygen -lf).
func PinnedKey(fingerprint string) TrustPolicy {
	return &pinnedKey{fingerprint: fingerprint}
}

type pinnedKey struct {
	fingerprint string
}

func (p *pinnedKey) Name() string { return "pinned" }

func (p *pinnedKey) Verify(hostname string, _ net.Addr, key ssh.PublicKey) error {
	got := ssh.FingerprintSHA256(key)
	if got == p.fingerprint {
		return nil
	}
	return &KeyMismatchError{
		Host:        hostname,
		Fingerprint: got,
	}
}

// InsecureAcceptAny returns a policy that accepts every host key. The key's
// fingerprint is still recorded in the verdict. Equivalent to
// StrictHostKeyChecking=no; for lab and CI use only.
func InsecureAcceptAny() TrustPolicy {
	return acceptAny{}
}

type acceptAny struct{}

func (acceptAny) Name() string { return "accept-any" }

func (acceptAny) Verify(string, net.Addr, ssh.PublicKey) error { return nil }

// keyObservation captures what the host key callback saw during handshakes,
// shared across the credential attempts of one probe.
type keyObservation struct {
	mu          sync.Mutex
	fingerprint string
	trust       HostKeyTrust
	failure     error // the policy error that aborted the handshake, if any
}

func newKeyObservation() *keyObservation {
	return &keyObservation{trust: TrustUnknown}
}

// callback wraps the policy so every handshake records the observed key and
// the trust decision before the handshake proceeds or aborts.
func (o *keyObservation) callback(policy TrustPolicy) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := policy.Verify(hostname, remote, key)

		o.mu.Lock()
		defer o.mu.Unlock()
		o.fingerprint = ssh.FingerprintSHA256(key)
		switch {
		case err == nil:
			o.trust = Trusted
		case isMismatch(err):
			o.trust = TrustMismatch
			o.failure = err
		default:
			o.trust = TrustUnknown
			o.failure = err
		}
		return err
	}
}

func (o *keyObservation) snapshot() (fingerprint string, trust HostKeyTrust, failure error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fingerprint, o.trust, o.failure
}

func isMismatch(err error) bool {
	var mismatch *KeyMismatchError
	return stderrors.As(err, &mismatch)
}

// translateKnownHostsErr maps x/crypto knownhosts errors onto the probe's
// host key error types.
func translateKnownHostsErr(err error, hostname string, key ssh.PublicKey, path string) error {
	if err == nil {
		return nil
	}

	var keyErr *knownhosts.KeyError
	if stderrors.As(err, &keyErr) {
		if len(keyErr.Want) > 0 {
			return &KeyMismatchError{
				Host:        hostname,
				Fingerprint: ssh.FingerprintSHA256(key),
				KnownHosts:  path,
				Want:        keyErr.Want,
			}
		}
		return &UnknownHostKeyError{
			Host:        hostname,
			Fingerprint: ssh.FingerprintSHA256(key),
			KnownHosts:  path,
		}
	}

	var revoked *knownhosts.RevokedError
	if stderrors.As(err, &revoked) {
		return &KeyMismatchError{
			Host:        hostname,
			Fingerprint: ssh.FingerprintSHA256(key),
			KnownHosts:  path,
			Want:        []knownhosts.KnownKey{revoked.Revoked},
		}
	}

	return err
}

func ensureKnownHostsFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return fmt.Errorf("cannot create known_hosts directory: %w", err)
		}
		if err := os.WriteFile(path, []byte{}, 0600); err != nil {
			return fmt.Errorf("cannot create known_hosts file: %w", err)
		}
	}
	return nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("cannot open known_hosts for writing: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("cannot record host key: %w", err)
	}
	return nil
}
