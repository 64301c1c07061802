package plugin

import (
	"context"
	"errors"
	"sync"
)

// fakeHost is an in-package Host double; the shared mock lives in testutil/mocks
// but cannot be imported here without a cycle.
type fakeHost struct {
	mu          sync.Mutex
	descriptors map[string]Descriptor
	listErr     error
	addErr      error
	added       []Object
}

func newFakeHost() *fakeHost {
	return &fakeHost{descriptors: make(map[string]Descriptor)}
}

func (h *fakeHost) put(d Descriptor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.descriptors[d.Key()] = d
}

func (h *fakeHost) Plugins(_ context.Context) (map[string]Descriptor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listErr != nil {
		return nil, h.listErr
	}
	out := make(map[string]Descriptor, len(h.descriptors))
	for k, v := range h.descriptors {
		out[k] = v
	}
	return out, nil
}

func (h *fakeHost) Add(_ context.Context, obj Object) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.addErr != nil {
		return h.addErr
	}
	h.added = append(h.added, obj)
	return nil
}

func intPtr(v int) *int {
	return &v
}

func eligible(ns, id, repo string, version int) Descriptor {
	return Descriptor{
		Namespace: ns,
		ID:        id,
		Version:   intPtr(version),
		Dyna:      &Marker{Repo: repo},
	}
}

var errHostDown = errors.New("host registry unavailable")
