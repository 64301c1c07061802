package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

type commandReply struct {
	result ports.CommandResult
	err    error
}

// CommandRunner records commands and answers with canned replies keyed by the
// space-joined command line.
type CommandRunner struct {
	mu      sync.RWMutex
	replies map[string]commandReply
	calls   []ports.CommandCall
}

// NewCommandRunner creates a new CommandRunner mock.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{replies: make(map[string]commandReply)}
}

// Reply makes line, e.g. "pkill -HUP host", return result.
func (m *CommandRunner) Reply(line string, result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[line] = commandReply{result: result}
}

// Fail makes line return err.
func (m *CommandRunner) Fail(line string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[line] = commandReply{err: err}
}

// Run records the call and returns the reply registered for it.
func (m *CommandRunner) Run(_ context.Context, command string, args ...string) (ports.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ports.CommandCall{Command: command, Args: args})

	line := strings.Join(append([]string{command}, args...), " ")
	reply, ok := m.replies[line]
	if !ok {
		return ports.CommandResult{}, fmt.Errorf("no reply for %q", line)
	}
	return reply.result, reply.err
}

// Calls returns every recorded invocation.
func (m *CommandRunner) Calls() []ports.CommandCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ports.CommandCall(nil), m.calls...)
}

var _ ports.CommandRunner = (*CommandRunner)(nil)
