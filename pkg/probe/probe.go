package probe

import (
	"context"
	"time"

	"golang.org/x/crypto/ssh"
)

// Probe runs one bounded connectivity and authentication check against the
// target: connect, verify the host key, try each credential in order,
// confirm the session, classify.
//
// The returned Verdict is always complete. An error is returned only for
// contract violations: an invalid target or an empty credential list.
// Cancelling ctx closes the in-flight connection and yields a Timeout
// verdict carrying whatever attempts finished.
func Probe(ctx context.Context, target Target, username string, credentials []Credential, opts Options) (*Verdict, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, &InvalidArgumentError{Reason: "username is empty"}
	}
	if len(credentials) == 0 {
		return nil, &InvalidArgumentError{Reason: "no credentials supplied"}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	opts = opts.withDefaults()

	start := time.Now()
	verdict := &Verdict{
		Target:       target,
		Username:     username,
		HostKeyTrust: TrustUnknown,
	}
	obs := newKeyObservation()

	conn, netErr := dialTarget(ctx, target, opts.ConnectTimeout)

	var client *ssh.Client
	var hostKeyFailure error
	if netErr == nil {
		client, verdict.Attempts, netErr, hostKeyFailure = authenticate(ctx, conn, target, username, credentials, opts, obs)
	}

	if client != nil {
		// Session confirmation is a secondary signal: a failure here does
		// not downgrade the outcome from Connected.
		verdict.SessionConfirmed = confirmSession(ctx, client, opts.PerAttemptTimeout)
		client.Close()
	}

	verdict.HostKeyFingerprint, verdict.HostKeyTrust, _ = obs.snapshot()
	verdict.FinalOutcome = classify(netErr, hostKeyFailure, verdict.Attempts, ctx.Err() != nil)
	verdict.Elapsed = time.Since(start)
	return verdict, nil
}
