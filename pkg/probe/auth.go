package probe

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// Rejection details mirror the messages an interactive OpenSSH client
// surfaces for the same denials.
const (
	passwordDeniedDetail  = "Permission denied, please try again."
	publickeyDeniedDetail = "Permission denied (publickey)."
)

// authenticate drives the credential attempts against the target, strictly
// in the given order, stopping at the first success.
//
// The first attempt rides on conn; a failed SSH handshake consumes its
// transport, so every later attempt re-dials. A re-dial failure aborts the
// probe as a network error, keeping the attempts recorded so far. A host
// key rejection aborts immediately without recording an attempt: the
// credential never reached authentication.
func authenticate(ctx context.Context, conn net.Conn, target Target, username string, credentials []Credential, opts Options, obs *keyObservation) (client *ssh.Client, attempts []AttemptResult, netErr *NetError, hostKeyFailure error) {
	for _, cred := range credentials {
		if conn == nil {
			conn, netErr = dialTarget(ctx, target, opts.ConnectTimeout)
			if netErr != nil {
				return nil, attempts, netErr, nil
			}
		}

		client, attempt := attemptCredential(ctx, conn, target.Addr(), username, cred, opts, obs)
		conn = nil

		if _, _, failure := obs.snapshot(); failure != nil {
			return nil, attempts, nil, failure
		}

		attempts = append(attempts, attempt)

		if client != nil {
			// Short-circuit: at most one successful session per probe.
			return client, attempts, nil, nil
		}

		if ctx.Err() != nil {
			return nil, attempts, nil, nil
		}
	}

	// AuthExhausted: every credential tried, none succeeded. The verdict
	// carries the attempts; this is not a fault raised to the caller.
	return nil, attempts, nil, nil
}

// attemptCredential performs one SSH handshake with a single auth method.
// The handshake is bounded by the per-attempt timeout via a connection
// deadline, and caller cancellation closes the transport out from under it.
func attemptCredential(ctx context.Context, conn net.Conn, addr, username string, cred Credential, opts Options, obs *keyObservation) (*ssh.Client, AttemptResult) {
	start := time.Now()
	attempt := AttemptResult{
		Method:     cred.Method(),
		Credential: cred.Label(),
	}

	auth, err := cred.authMethod(opts)
	if err != nil {
		// Unusable credential material (missing agent, encrypted key):
		// the server never saw it, so this is an error, not a denial.
		conn.Close()
		attempt.Outcome = OutcomeError
		attempt.Detail = err.Error()
		attempt.Elapsed = time.Since(start)
		return nil, attempt
	}

	cfg := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: obs.callback(opts.TrustPolicy),
	}

	if err := conn.SetDeadline(time.Now().Add(opts.PerAttemptTimeout)); err != nil {
		conn.Close()
		attempt.Outcome = OutcomeError
		attempt.Detail = fmt.Sprintf("cannot arm attempt timeout: %v", err)
		attempt.Elapsed = time.Since(start)
		return nil, attempt
	}

	// Propagate cancellation into the blocking handshake.
	handshakeDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-handshakeDone:
		}
	}()

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	close(handshakeDone)
	attempt.Elapsed = time.Since(start)

	if err != nil {
		conn.Close()
		attempt.Outcome, attempt.Detail = classifyHandshakeErr(ctx, err, cred.Method(), opts.PerAttemptTimeout)
		return nil, attempt
	}

	// Successful handshakes hand the transport to the ssh.Client; lift the
	// attempt deadline so the session probe gets its own budget.
	conn.SetDeadline(time.Time{})
	attempt.Outcome = OutcomeSuccess
	return ssh.NewClient(sshConn, chans, reqs), attempt
}

// classifyHandshakeErr separates "the server said no" from "the server
// never answered", so a rejection is never confused with an unresponsive
// or broken peer.
func classifyHandshakeErr(ctx context.Context, err error, method Method, attemptTimeout time.Duration) (Outcome, string) {
	if ctx.Err() != nil {
		return OutcomeError, "probe cancelled during authentication"
	}

	msg := err.Error()

	// The x/crypto handshake error does not wrap the underlying net error,
	// so a string check is the only signal for an expired conn deadline.
	if strings.Contains(msg, "i/o timeout") || strings.Contains(msg, "deadline exceeded") {
		return OutcomeError, fmt.Sprintf("no response from server within %s", attemptTimeout)
	}

	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "no supported methods remain") {
		switch method {
		case MethodPassword:
			return OutcomeAuthRejected, passwordDeniedDetail
		case MethodPublicKey:
			return OutcomeAuthRejected, publickeyDeniedDetail
		default:
			return OutcomeAuthRejected, "Permission denied."
		}
	}

	return OutcomeError, msg
}
