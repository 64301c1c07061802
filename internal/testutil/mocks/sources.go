package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/dyna/internal/domain/remote"
)

// ManifestSource is a thread-safe test double serving manifests by repo.
type ManifestSource struct {
	mu        sync.RWMutex
	manifests map[string]remote.Manifest
	errors    map[string]error
	calls     []remote.Coordinates
	onFetch   func(remote.Coordinates)
}

// NewManifestSource creates a new ManifestSource mock.
func NewManifestSource() *ManifestSource {
	return &ManifestSource{
		manifests: make(map[string]remote.Manifest),
		errors:    make(map[string]error),
	}
}

// SetManifest serves m for repo.
func (m *ManifestSource) SetManifest(repo string, manifest remote.Manifest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifests[repo] = manifest
}

// SetError makes fetches for repo fail with err.
func (m *ManifestSource) SetError(repo string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[repo] = err
}

// OnFetch registers fn to run at the start of every fetch.
func (m *ManifestSource) OnFetch(fn func(remote.Coordinates)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFetch = fn
}

// Fetch returns the manifest registered for the coordinates' repo.
func (m *ManifestSource) Fetch(_ context.Context, c remote.Coordinates) (*remote.Manifest, error) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	hook := m.onFetch
	m.mu.Unlock()

	if hook != nil {
		hook(c)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.errors[c.Repo]; ok {
		return nil, &remote.ManifestUnavailableError{Repo: c.Repo, Err: err}
	}
	if manifest, ok := m.manifests[c.Repo]; ok {
		return &manifest, nil
	}
	return nil, &remote.ManifestUnavailableError{Repo: c.Repo, Err: fmt.Errorf("no mock manifest for %s", c.Repo)}
}

// Calls returns the coordinates of every fetch.
func (m *ManifestSource) Calls() []remote.Coordinates {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]remote.Coordinates, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// ArtifactSource is a thread-safe test double serving artifact bodies by URL.
type ArtifactSource struct {
	mu     sync.RWMutex
	bodies map[string]string
	errors map[string]error
	calls  []string
}

// NewArtifactSource creates a new ArtifactSource mock.
func NewArtifactSource() *ArtifactSource {
	return &ArtifactSource{
		bodies: make(map[string]string),
		errors: make(map[string]error),
	}
}

// SetBody serves body for url.
func (m *ArtifactSource) SetBody(url, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies[url] = body
}

// SetError makes downloads of url fail with err.
func (m *ArtifactSource) SetError(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[url] = err
}

// Download returns the body registered for url.
func (m *ArtifactSource) Download(_ context.Context, url string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.errors[url]; ok {
		return "", &remote.ArtifactFetchError{URL: url, Err: err}
	}
	if body, ok := m.bodies[url]; ok {
		return body, nil
	}
	return "", &remote.ArtifactFetchError{URL: url, StatusCode: 404}
}

// Calls returns every requested URL.
func (m *ArtifactSource) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]string, len(m.calls))
	copy(calls, m.calls)
	return calls
}
