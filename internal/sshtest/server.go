// Package sshtest provides an in-process SSH server for exercising the
// probe pipeline in tests without external infrastructure.
//
// The server listens on a random localhost port, authenticates via a
// password table and/or a set of authorized public keys, and answers
// session "exec" and "shell" requests with a successful exit status. It can
// also be configured to go silent after accepting the TCP connection, which
// is how an unresponsive-but-listening server is simulated.
package sshtest

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"net"
	"strconv"
	"sync"

	"golang.org/x/crypto/ssh"
)

// Config controls server behavior.
type Config struct {
	// Users maps usernames to passwords accepted for password auth.
	// An empty map disables password auth.
	Users map[string]string

	// AuthorizedKeys lists public keys accepted for publickey auth.
	AuthorizedKeys []ssh.PublicKey

	// Silent makes the server accept TCP connections and then never speak
	// SSH, simulating a stalled daemon.
	Silent bool

	// HostKey overrides the generated host key.
	HostKey ssh.Signer

	// ExecHandler, if set, decides the exit status for "exec" requests.
	// The default answers every command with status 0.
	ExecHandler func(command string) uint32
}

// Server is a minimal in-process SSH server.
type Server struct {
	cfg      Config
	srvCfg   *ssh.ServerConfig
	listener net.Listener
	signer   ssh.Signer

	mu     sync.Mutex
	closed bool
}

// New starts a server on a random localhost port.
func New(cfg Config) (*Server, error) {
	signer := cfg.HostKey
	if signer == nil {
		var err error
		signer, err = GenerateHostKey()
		if err != nil {
			return nil, err
		}
	}

	srvCfg := &ssh.ServerConfig{}
	srvCfg.AddHostKey(signer)

	if len(cfg.Users) > 0 {
		srvCfg.PasswordCallback = func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			want, ok := cfg.Users[meta.User()]
			if ok && subtle.ConstantTimeCompare([]byte(want), password) == 1 {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("wrong password for %q", meta.User())
		}
	}

	if len(cfg.AuthorizedKeys) > 0 {
		authorized := make([][]byte, len(cfg.AuthorizedKeys))
		for i, key := range cfg.AuthorizedKeys {
			authorized[i] = key.Marshal()
		}
		srvCfg.PublicKeyCallback = func(meta ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			marshaled := key.Marshal()
			for _, want := range authorized {
				if subtle.ConstantTimeCompare(want, marshaled) == 1 {
					return &ssh.Permissions{}, nil
				}
			}
			return nil, fmt.Errorf("unknown public key for %q", meta.User())
		}
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		srvCfg:   srvCfg,
		listener: listener,
		signer:   signer,
	}
	go s.acceptLoop()
	return s, nil
}

// Close stops the listener. In-flight connections are abandoned.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.listener.Close()
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Host returns the listen host.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr())
	return host
}

// Port returns the listen port.
func (s *Server) Port() int {
	_, portStr, _ := net.SplitHostPort(s.Addr())
	port, _ := strconv.Atoi(portStr)
	return port
}

// HostKey returns the server's public host key.
func (s *Server) HostKey() ssh.PublicKey {
	return s.signer.PublicKey()
}

// Fingerprint returns the SHA256 fingerprint of the host key.
func (s *Server) Fingerprint() string {
	return ssh.FingerprintSHA256(s.signer.PublicKey())
}

// KnownHostsLine returns a known_hosts entry for this server.
func (s *Server) KnownHostsLine() string {
	return fmt.Sprintf("[%s]:%d %s", s.Host(), s.Port(), string(ssh.MarshalAuthorizedKey(s.HostKey())))
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	if s.cfg.Silent {
		// Hold the connection open without ever sending the SSH banner.
		// The client's deadline, not ours, ends this.
		buf := make([]byte, 256)
		for {
			if _, err := conn.Read(buf); err != nil {
				conn.Close()
				return
			}
		}
	}

	serverConn, chans, reqs, err := ssh.NewServerConn(conn, s.srvCfg)
	if err != nil {
		conn.Close()
		return
	}
	defer serverConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			newChan.Reject(ssh.UnknownChannelType, "only sessions are supported")
			continue
		}
		channel, requests, err := newChan.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(channel, requests)
	}
}

func (s *Server) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	for req := range requests {
		switch req.Type {
		case "exec":
			command := parseExecCommand(req.Payload)
			status := uint32(0)
			if s.cfg.ExecHandler != nil {
				status = s.cfg.ExecHandler(command)
			}
			req.Reply(true, nil)
			sendExitStatus(channel, status)
			return
		case "shell":
			req.Reply(true, nil)
			sendExitStatus(channel, 0)
			return
		default:
			req.Reply(false, nil)
		}
	}
}

// parseExecCommand extracts the command string from an "exec" request
// payload (RFC 4254 6.5: a single length-prefixed string).
func parseExecCommand(payload []byte) string {
	if len(payload) < 4 {
		return ""
	}
	n := binary.BigEndian.Uint32(payload)
	if uint32(len(payload)-4) < n {
		return ""
	}
	return string(payload[4 : 4+n])
}

func sendExitStatus(channel ssh.Channel, status uint32) {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, status)
	channel.SendRequest("exit-status", false, payload)
}

// GenerateHostKey creates a fresh ed25519 signer for use as a host key.
func GenerateHostKey() (ssh.Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return ssh.NewSignerFromKey(priv)
}

// GenerateClientKey creates a client keypair, returning the PEM-encoded
// private key and the corresponding public key.
func GenerateClientKey() (pemBytes []byte, pub ssh.PublicKey, err error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		return nil, nil, err
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, nil, err
	}
	return pem.EncodeToMemory(block), signer.PublicKey(), nil
}
