package mocks

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
)

// Host is a thread-safe test double for plugin.Host. Added objects that carry
// a version replace the matching descriptor, so a rebuild after a load sees
// the new version.
type Host struct {
	mu          sync.RWMutex
	descriptors map[string]plugin.Descriptor
	listErr     error
	addErr      error
	added       []plugin.Object
	listCalls   int
}

// NewHost creates a new Host mock.
func NewHost() *Host {
	return &Host{descriptors: make(map[string]plugin.Descriptor)}
}

// Put registers a descriptor under its composite key.
func (m *Host) Put(d plugin.Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.descriptors[d.Key()] = d
}

// Remove deletes the descriptor with the given key.
func (m *Host) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.descriptors, key)
}

// SetListError makes Plugins fail with err.
func (m *Host) SetListError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// SetAddError makes Add fail with err.
func (m *Host) SetAddError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addErr = err
}

// Plugins returns a copy of the registered descriptors.
func (m *Host) Plugins(_ context.Context) (map[string]plugin.Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make(map[string]plugin.Descriptor, len(m.descriptors))
	for k, v := range m.descriptors {
		out[k] = v
	}
	return out, nil
}

// Add records obj and bumps the stored version of a known plugin.
func (m *Host) Add(_ context.Context, obj plugin.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, obj)
	if d, ok := m.descriptors[obj.Key()]; ok {
		if v, ok := obj.Version(); ok {
			d.Version = &v
			m.descriptors[obj.Key()] = d
		}
	}
	return nil
}

// Added returns the objects passed to Add.
func (m *Host) Added() []plugin.Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	added := make([]plugin.Object, len(m.added))
	copy(added, m.added)
	return added
}

// ListCalls returns how often Plugins was called.
func (m *Host) ListCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCalls
}

// Ensure Host implements plugin.Host.
var _ plugin.Host = (*Host)(nil)
