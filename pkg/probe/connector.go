package probe

import (
	"context"
	stderrors "errors"
	"net"
	"syscall"
	"time"
)

// dialTarget opens the TCP connection to the target, bounded by timeout.
// Failures come back as *NetError so the classifier can tell an offline
// host from a refused port from a black-holed route.
func dialTarget(ctx context.Context, target Target, timeout time.Duration) (net.Conn, *NetError) {
	addr := target.Addr()
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &NetError{
			Kind: classifyDialErr(ctx, err),
			Addr: addr,
			Err:  err,
		}
	}
	return conn, nil
}

// classifyDialErr maps a dial failure onto the network error taxonomy.
func classifyDialErr(ctx context.Context, err error) NetErrorKind {
	// Caller cancellation or deadline counts as a timeout: the host never
	// answered within the time we were willing to wait.
	if ctx.Err() != nil || stderrors.Is(err, context.DeadlineExceeded) {
		return NetTimeout
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return NetTimeout
	}

	if stderrors.Is(err, syscall.ECONNREFUSED) {
		return NetRefused
	}

	// DNS failures and unroutable networks both mean we never found a
	// path to the host.
	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return NetUnreachable
	}
	if stderrors.Is(err, syscall.EHOSTUNREACH) || stderrors.Is(err, syscall.ENETUNREACH) {
		return NetUnreachable
	}

	return NetUnreachable
}
