// Package cmdrunner executes external shell probes with bounded retry.
//
// Probing external CLI tools is inherently flaky (tool not yet on PATH
// during shell warm-up, transient device-daemon restarts), so every probe
// goes through this runner instead of callers hand-rolling retry loops.
package cmdrunner

import (
	"bytes"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/devicelab-dev/appium-harness/pkg/logger"
)

// Defaults for probe retry.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 1 * time.Second
)

// Result is the outcome of a completed command: its exit code and the
// merged stdout/stderr text. The streams are merged because version probes
// write to either stream inconsistently (java -version uses stderr).
type Result struct {
	ExitCode int
	Output   string
}

// Runner runs external commands with bounded retry on execution failure.
// A command that starts and exits non-zero is a result, not a retryable
// error; only failure to execute at all (binary missing, fork error)
// triggers a retry.
type Runner struct {
	MaxAttempts int
	RetryDelay  time.Duration

	// execute is swappable in tests.
	execute func(name string, args ...string) (Result, error)
}

// New returns a Runner with default retry policy.
func New() *Runner {
	return &Runner{
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
	}
}

// Run executes the command, retrying up to MaxAttempts with a fixed delay.
// The error is non-nil only after all attempts are exhausted.
func (r *Runner) Run(name string, args ...string) (Result, error) {
	exe := r.execute
	if exe == nil {
		exe = runOnce
	}

	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var result Result
	op := func() error {
		var err error
		result, err = exe(name, args...)
		if err != nil {
			logger.Warn("command %s failed to execute: %v", name, err)
		}
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(r.RetryDelay), uint64(attempts-1))
	if err := backoff.Retry(op, policy); err != nil {
		return Result{}, err
	}
	return result, nil
}

// runOnce executes the command a single time with merged output streams.
func runOnce(name string, args ...string) (Result, error) {
	cmd := exec.Command(name, args...)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			// Ran but exited non-zero: a valid result.
			return Result{ExitCode: exitErr.ExitCode(), Output: combined.String()}, nil
		}
		return Result{}, err
	}

	return Result{ExitCode: 0, Output: combined.String()}, nil
}
