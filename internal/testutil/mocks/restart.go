package mocks

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

// RestartNotifier records restart warnings.
type RestartNotifier struct {
	mu    sync.RWMutex
	err   error
	warns [][]string
}

// NewRestartNotifier creates a new RestartNotifier mock.
func NewRestartNotifier() *RestartNotifier {
	return &RestartNotifier{}
}

// SetError makes Warn fail with err.
func (m *RestartNotifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Warn records the plugins the warning was for.
func (m *RestartNotifier) Warn(_ context.Context, plugins []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, append([]string(nil), plugins...))
	return m.err
}

// Warnings returns every recorded warning.
func (m *RestartNotifier) Warnings() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([][]string(nil), m.warns...)
}

// Reloader counts reloads.
type Reloader struct {
	mu    sync.RWMutex
	err   error
	calls int
}

// NewReloader creates a new Reloader mock.
func NewReloader() *Reloader {
	return &Reloader{}
}

// SetError makes Reload fail with err.
func (m *Reloader) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Reload records the call.
func (m *Reloader) Reload(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

// Calls returns how often Reload was called.
func (m *Reloader) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Ensure the mocks implement their ports.
var (
	_ ports.RestartNotifier = (*RestartNotifier)(nil)
	_ ports.Reloader        = (*Reloader)(nil)
)
