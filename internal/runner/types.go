package runner

import (
	"time"

	"github.com/rileyhilliard/knock/pkg/probe"
)

// Config holds configuration for parallel probing.
type Config struct {
	MaxParallel int  // Max concurrent probes (0 = one worker per job, capped)
	FailFast    bool // Stop launching probes after the first failed verdict
}

// DefaultMaxParallel caps worker count when MaxParallel is unset.
const DefaultMaxParallel = 8

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxParallel: 0,
		FailFast:    false,
	}
}

// Job describes one target to probe.
type Job struct {
	Name        string // Display name (config target name or the raw spec)
	Target      probe.Target
	Username    string
	Credentials []probe.Credential
	Options     probe.Options
}

// JobResult holds the outcome of probing one target.
type JobResult struct {
	Name      string
	Target    probe.Target
	Verdict   *probe.Verdict // nil when Err is set
	Err       error          // invalid job input, not a probe outcome
	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// Success reports whether the probe authenticated.
func (r *JobResult) Success() bool {
	return r.Err == nil && r.Verdict != nil && r.Verdict.FinalOutcome == probe.Connected
}

// ExitCode maps the result to a process exit code.
func (r *JobResult) ExitCode() int {
	if r.Err != nil || r.Verdict == nil {
		return probe.ExitUnreachable
	}
	return r.Verdict.ExitCode()
}

// Result holds the aggregate outcome of a parallel probe run.
type Result struct {
	JobResults []JobResult
	Duration   time.Duration // Total wall-clock time
	Connected  int           // Count of successful probes
	Failed     int           // Count of everything else
}

// Success reports whether every probe connected.
func (r *Result) Success() bool {
	return r.Failed == 0
}

// ExitCode returns the worst exit code across all results. A run with no
// jobs exits clean.
func (r *Result) ExitCode() int {
	code := probe.ExitConnected
	for i := range r.JobResults {
		if c := r.JobResults[i].ExitCode(); c > code {
			code = c
		}
	}
	return code
}

// Events receives progress callbacks during a run. Implementations must be
// safe for concurrent use; workers call them from their own goroutines.
// The zero value (nil) disables notifications.
type Events interface {
	JobStarted(name string, target probe.Target)
	JobCompleted(result JobResult)
}
