// Package probe verifies SSH reachability and authentication for a single
// target host.
//
// A probe is one bounded pipeline: dial the target, verify its host key
// against a trust policy, attempt the supplied credentials in order, confirm
// the authenticated session is usable, and classify everything into a
// Verdict. The caller always gets a completed Verdict; only contract
// violations (no credentials, invalid port) surface as errors.
//
// The package performs no retries beyond the configured password retry
// bound. Retrying a failed probe is the caller's decision, based on the
// verdict it received.
package probe
