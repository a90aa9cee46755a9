package probe

import (
	"context"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialTarget_Success(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	conn, nerr := dialTarget(context.Background(), Target{Host: "127.0.0.1", Port: addr.Port}, 2*time.Second)
	require.Nil(t, nerr)
	require.NotNil(t, conn)
	conn.Close()
}

func TestDialTarget_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	conn, nerr := dialTarget(context.Background(), Target{Host: "127.0.0.1", Port: addr.Port}, 2*time.Second)
	assert.Nil(t, conn)
	require.NotNil(t, nerr)
	assert.Equal(t, NetRefused, nerr.Kind)
	assert.Contains(t, nerr.Error(), "refused")
}

func TestDialTarget_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn, nerr := dialTarget(ctx, Target{Host: "192.0.2.1", Port: 22}, 5*time.Second)
	assert.Nil(t, conn)
	require.NotNil(t, nerr)
	assert.Equal(t, NetTimeout, nerr.Kind)
}

func TestClassifyDialErr(t *testing.T) {
	bg := context.Background()

	tests := []struct {
		name string
		err  error
		want NetErrorKind
	}{
		{
			name: "connection refused",
			err:  &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
			want: NetRefused,
		},
		{
			name: "host unreachable",
			err:  &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.EHOSTUNREACH)},
			want: NetUnreachable,
		},
		{
			name: "network unreachable",
			err:  &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ENETUNREACH)},
			want: NetUnreachable,
		},
		{
			name: "dns failure",
			err:  &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true},
			want: NetUnreachable,
		},
		{
			name: "dial timeout",
			err:  &net.OpError{Op: "dial", Err: &timeoutErr{}},
			want: NetTimeout,
		},
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
			want: NetTimeout,
		},
		{
			name: "anything else is unreachable",
			err:  os.ErrPermission,
			want: NetUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyDialErr(bg, tt.err))
		})
	}
}

func TestNetErrorKindString(t *testing.T) {
	assert.Equal(t, "unreachable", NetUnreachable.String())
	assert.Equal(t, "refused", NetRefused.String())
	assert.Equal(t, "timeout", NetTimeout.String())
}

// timeoutErr is a net.Error that reports a timeout.
type timeoutErr struct{}

func (*timeoutErr) Error() string   { return "i/o timeout" }
func (*timeoutErr) Timeout() bool   { return true }
func (*timeoutErr) Temporary() bool { return true }
