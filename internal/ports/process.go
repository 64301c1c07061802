package ports

import "context"

// CommandResult represents the result of executing a command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// CommandCall records a command invocation.
type CommandCall struct {
	Command string
	Args    []string
}

// CommandRunner executes external commands.
type CommandRunner interface {
	Run(ctx context.Context, command string, args ...string) (CommandResult, error)
}

// RestartNotifier warns the user that the host is about to be restarted.
// Warn blocks until the warning has been delivered.
type RestartNotifier interface {
	Warn(ctx context.Context, plugins []string) error
}

// Reloader restarts the host application after plugins were replaced.
type Reloader interface {
	Reload(ctx context.Context) error
}
