package probe

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Credential is one authentication method instance to attempt against the
// target. Implementations are created through the constructors in this
// package; exactly one username applies per probe, supplied to Probe itself.
type Credential interface {
	// Method names the SSH auth method this credential drives.
	Method() Method

	// Label describes the credential for attempt reports ("password",
	// "publickey (~/.ssh/id_ed25519)", "publickey (agent)").
	Label() string

	// authMethod builds the ssh.AuthMethod for one handshake attempt.
	authMethod(opts Options) (ssh.AuthMethod, error)
}

// passwordCredential authenticates with a secret.
type passwordCredential struct {
	secret string
}

// Password returns a credential for SSH password authentication. The secret
// is held in memory as supplied; the probe never echoes it in details.
func Password(secret string) Credential {
	return &passwordCredential{secret: secret}
}

func (c *passwordCredential) Method() Method { return MethodPassword }
func (c *passwordCredential) Label() string  { return "password" }

func (c *passwordCredential) authMethod(opts Options) (ssh.AuthMethod, error) {
	// RetryableAuthMethod bounds in-handshake re-tries the way an
	// interactive client bounds password re-prompts.
	return ssh.RetryableAuthMethod(ssh.Password(c.secret), opts.MaxPasswordRetries), nil
}

// publicKeyCredential authenticates with private key material.
type publicKeyCredential struct {
	pem        []byte
	passphrase []byte
	source     string // file path or "" for in-memory material
}

// PublicKey returns a credential for SSH publickey authentication using
// in-memory PEM material. An empty passphrase means the key is expected to
// be unencrypted.
func PublicKey(pemBytes, passphrase []byte) Credential {
	return &publicKeyCredential{pem: pemBytes, passphrase: passphrase}
}

// PublicKeyFile returns a credential backed by a private key file. The file
// is read immediately so a missing or unreadable key fails fast.
func PublicKeyFile(path string, passphrase []byte) (Credential, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &publicKeyCredential{pem: pemBytes, passphrase: passphrase, source: path}, nil
}

func (c *publicKeyCredential) Method() Method { return MethodPublicKey }

func (c *publicKeyCredential) Label() string {
	if c.source != "" {
		return fmt.Sprintf("publickey (%s)", displayPath(c.source))
	}
	return "publickey"
}

func (c *publicKeyCredential) authMethod(Options) (ssh.AuthMethod, error) {
	var signer ssh.Signer
	var err error
	if len(c.passphrase) > 0 {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(c.pem, c.passphrase)
	} else {
		signer, err = ssh.ParsePrivateKey(c.pem)
	}
	if err != nil {
		if isEncryptedKey(c.pem, err) && len(c.passphrase) == 0 {
			return nil, &EncryptedKeyError{Path: c.source}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

// agentCredential authenticates with whatever keys the SSH agent holds.
type agentCredential struct {
	socket string
}

// Agent returns a credential backed by the SSH agent at SSH_AUTH_SOCK.
// Building the auth method fails if no agent is reachable or the agent
// holds no keys; the probe records that as an attempt error, not a denial.
func Agent() Credential {
	return &agentCredential{socket: os.Getenv("SSH_AUTH_SOCK")}
}

func (c *agentCredential) Method() Method { return MethodPublicKey }
func (c *agentCredential) Label() string  { return "publickey (agent)" }

func (c *agentCredential) authMethod(Options) (ssh.AuthMethod, error) {
	if c.socket == "" {
		return nil, fmt.Errorf("no SSH agent available (SSH_AUTH_SOCK unset)")
	}
	conn, err := net.Dial("unix", c.socket)
	if err != nil {
		return nil, fmt.Errorf("cannot reach SSH agent: %w", err)
	}
	ag := agent.NewClient(conn)

	// An empty agent would fail the handshake with a confusing error, so
	// check up front like an interactive client listing its identities.
	signers, err := ag.Signers()
	if err != nil || len(signers) == 0 {
		conn.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot list agent keys: %w", err)
		}
		return nil, fmt.Errorf("SSH agent has no keys loaded")
	}

	return ssh.PublicKeysCallback(ag.Signers), nil
}

// isEncryptedKey reports whether key material failed to parse because it
// needs a passphrase.
func isEncryptedKey(pemBytes []byte, parseErr error) bool {
	if _, ok := parseErr.(*ssh.PassphraseMissingError); ok {
		return true
	}
	msg := parseErr.Error()
	if strings.Contains(msg, "encrypted") || strings.Contains(msg, "passphrase") {
		return true
	}
	return bytes.Contains(pemBytes, []byte("ENCRYPTED")) ||
		bytes.Contains(pemBytes, []byte("Proc-Type: 4,ENCRYPTED"))
}

// displayPath shortens a path under $HOME to ~/ form for labels.
func displayPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if rel, err := filepath.Rel(home, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.Join("~", rel)
	}
	return path
}
