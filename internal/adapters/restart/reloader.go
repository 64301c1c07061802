package restart

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/dyna/internal/adapters/command"
	"github.com/felixgeelhaar/dyna/internal/ports"
)

// CommandReloader restarts the host by running a configured command line.
type CommandReloader struct {
	runner ports.CommandRunner
	name   string
	args   []string
	logger ports.Logger
}

// NewCommandReloader parses line and returns a reloader running it.
func NewCommandReloader(runner ports.CommandRunner, line string, logger ports.Logger) (*CommandReloader, error) {
	if runner == nil {
		return nil, fmt.Errorf("command runner is required")
	}
	name, args, err := command.Split(line)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = ports.Discard()
	}
	return &CommandReloader{runner: runner, name: name, args: args, logger: logger}, nil
}

// Reload runs the command. A non-zero exit status is an error.
func (r *CommandReloader) Reload(ctx context.Context) error {
	r.logger.Info(ctx, "restarting host", ports.F("command", r.name))

	result, err := r.runner.Run(ctx, r.name, r.args...)
	if err != nil {
		return fmt.Errorf("running %s: %w", r.name, err)
	}
	if !result.Success() {
		return fmt.Errorf("%s exited with status %d: %s",
			r.name, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// LogReloader only records that a restart is needed. It is used when no
// restart command is configured.
type LogReloader struct {
	logger ports.Logger
}

// NewLogReloader creates a reloader that logs instead of restarting.
func NewLogReloader(logger ports.Logger) *LogReloader {
	if logger == nil {
		logger = ports.Discard()
	}
	return &LogReloader{logger: logger}
}

// Reload logs a warning and succeeds.
func (r *LogReloader) Reload(ctx context.Context) error {
	r.logger.Warn(ctx, "restart the host application to finish plugin updates")
	return nil
}

var (
	_ ports.Reloader = (*CommandReloader)(nil)
	_ ports.Reloader = (*LogReloader)(nil)
)
