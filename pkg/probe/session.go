package probe

import (
	"context"
	stderrors "errors"
	"time"

	"golang.org/x/crypto/ssh"
)

// confirmSession opens a throwaway session on the authenticated connection
// and runs a benign command to prove the login is actually usable, not just
// accepted. The session is closed on every exit path; the caller still owns
// the client.
func confirmSession(ctx context.Context, client *ssh.Client, timeout time.Duration) bool {
	session, err := client.NewSession()
	if err != nil {
		return false
	}
	defer session.Close()

	done := make(chan error, 1)
	go func() {
		done <- session.Run("true")
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err == nil {
			return true
		}
		// A non-zero exit still proves the server ran the command; only a
		// transport-level failure means the session is unusable.
		var exitErr *ssh.ExitError
		var missingErr *ssh.ExitMissingError
		return stderrors.As(err, &exitErr) || stderrors.As(err, &missingErr)
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
