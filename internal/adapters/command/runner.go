// Package command runs external programs for the reloader.
package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	shlex "github.com/anmitsu/go-shlex"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

// RealRunner executes commands on the local machine.
type RealRunner struct {
	dir string
	env []string
}

// RunnerOption configures a RealRunner.
type RunnerOption func(*RealRunner)

// WithDir sets the working directory of every command.
func WithDir(dir string) RunnerOption {
	return func(r *RealRunner) {
		r.dir = dir
	}
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) RunnerOption {
	return func(r *RealRunner) {
		r.env = append(r.env, env...)
	}
}

// NewRealRunner creates a new RealRunner.
func NewRealRunner(opts ...RunnerOption) *RealRunner {
	r := &RealRunner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a command and returns the result. A non-zero exit status is
// reported through the result, not as an error.
func (r *RealRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = r.dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := ports.CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}

// Split parses a configured command line such as `systemctl --user restart
// host` into a program and its arguments using POSIX quoting rules.
func Split(line string) (string, []string, error) {
	words, err := shlex.Split(line, true)
	if err != nil {
		return "", nil, fmt.Errorf("parsing command %q: %w", line, err)
	}
	if len(words) == 0 {
		return "", nil, fmt.Errorf("command is empty")
	}
	return words[0], words[1:], nil
}

// Ensure RealRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*RealRunner)(nil)
