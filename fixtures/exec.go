package fixtures

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flanksource/clicky"
	"github.com/flanksource/commons/logger"
)

// ErrTimeout is wrapped by ExecResult.Err when a process was killed for running too long.
var ErrTimeout = errors.New("timed out")

// ExecResult is the outcome of one blocking subprocess run.
type ExecResult struct {
	Command  string        `json:"command" yaml:"command"`
	Dir      string        `json:"dir,omitempty" yaml:"dir,omitempty"`
	ExitCode int           `json:"exitCode" yaml:"exitCode"`
	Stdout   string        `json:"stdout,omitempty" yaml:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty" yaml:"stderr,omitempty"`
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	// Err is set when the process could not be started, was killed, or was never run
	Err error `json:"-" yaml:"-"`
}

// Failed reports whether the process did not run to a zero exit.
func (r ExecResult) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// Reason describes a failed run in one line.
func (r ExecResult) Reason() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("`%s` failed: %v", r.Command, r.Err)
	case r.ExitCode != 0:
		return fmt.Sprintf("`%s` exited with code %d", r.Command, r.ExitCode)
	default:
		return fmt.Sprintf("`%s` succeeded", r.Command)
	}
}

// Output returns the combined stderr and stdout of the process.
func (r ExecResult) Output() string {
	return strings.TrimSpace(r.Stderr + r.Stdout)
}

// Executor runs one command to completion in dir.
type Executor interface {
	Exec(ctx context.Context, dir string, argv Argv) ExecResult
}

// ClickyExecutor runs commands with clicky's process runner.
type ClickyExecutor struct {
	// Timeout kills a process that runs longer; zero means no limit
	Timeout time.Duration
}

var _ Executor = ClickyExecutor{}

func (e ClickyExecutor) Exec(ctx context.Context, dir string, argv Argv) ExecResult {
	result := ExecResult{Command: argv.String(), Dir: dir}
	if len(argv) == 0 {
		result.Err = errors.New("empty command")
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	timeout := e.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout == 0 || remaining < timeout {
			timeout = remaining
		}
	}

	proc := clicky.Exec(argv[0], argv[1:]...).WithCwd(dir)
	if timeout > 0 {
		proc = proc.WithTimeout(timeout)
	}
	if logger.V(4).Enabled() {
		proc = proc.Debug()
	}

	logger.V(2).Infof("exec (cwd=%s): %s", dir, result.Command)
	start := time.Now()
	p := proc.Run().Result()
	result.Duration = time.Since(start)

	result.Stdout = p.Stdout
	result.Stderr = p.Stderr
	result.ExitCode = p.ExitCode
	result.Err = p.Error

	if timeout > 0 && result.Failed() && result.Duration >= timeout {
		if result.Err != nil {
			result.Err = fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, result.Err)
		} else {
			result.Err = fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
	}
	if result.Failed() {
		logger.V(3).Infof("%s\n%s", result.Reason(), result.Output())
	}
	return result
}
