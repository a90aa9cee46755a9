package probe

// classify maps the signals collected by the pipeline into the terminal
// outcome. First match wins:
//
//  1. a network error ends the probe as unreachable or timed out
//  2. any host key rejection ends it as a host key mismatch, regardless of
//     what the credentials could have achieved
//  3. a successful attempt means connected
//  4. cancellation with no success is a timeout
//  5. anything left is auth exhaustion
func classify(netErr *NetError, hostKeyFailure error, attempts []AttemptResult, cancelled bool) FinalOutcome {
	switch {
	case netErr != nil:
		if netErr.Kind == NetTimeout {
			return Timeout
		}
		return NetworkUnreachable

	case hostKeyFailure != nil:
		// Both a contradicting key and a strict-policy unknown host land
		// here: in neither case was the server's identity verified, so the
		// probe never reached authentication.
		return HostKeyMismatch

	case hasSuccess(attempts):
		return Connected

	case cancelled:
		return Timeout

	default:
		return AuthFailed
	}
}

func hasSuccess(attempts []AttemptResult) bool {
	for _, a := range attempts {
		if a.Outcome == OutcomeSuccess {
			return true
		}
	}
	return false
}
