// Package testutil provides test helpers and utilities for dyna tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteTempFile writes content to a file in the specified directory.
func WriteTempFile(t testing.TB, dir, filename, content string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err, "failed to write temp file: %s", filename)

	return path
}

// SetEnv sets an environment variable for the duration of the test.
func SetEnv(t *testing.T, key, value string) {
	t.Helper()

	original, had := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))

	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, original)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

// Remote is an httptest server standing in for a raw file host. Files are
// served by path; unknown paths return 404.
type Remote struct {
	*httptest.Server

	mu    sync.RWMutex
	files map[string]string
	codes map[string]int
	hits  map[string]int
}

// NewRemote starts a Remote that is closed when the test ends.
func NewRemote(t testing.TB) *Remote {
	t.Helper()

	r := &Remote{
		files: make(map[string]string),
		codes: make(map[string]int),
		hits:  make(map[string]int),
	}
	r.Server = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.Close)
	return r
}

func (r *Remote) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.hits[req.URL.Path]++
	body, ok := r.files[req.URL.Path]
	code, forced := r.codes[req.URL.Path]
	r.mu.Unlock()

	switch {
	case forced:
		w.WriteHeader(code)
	case ok:
		_, _ = w.Write([]byte(body))
	default:
		http.NotFound(w, req)
	}
}

// Set serves body at path.
func (r *Remote) Set(path, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files["/"+strings.TrimPrefix(path, "/")] = body
}

// SetStatus makes path answer with code.
func (r *Remote) SetStatus(path string, code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes["/"+strings.TrimPrefix(path, "/")] = code
}

// Hits returns how often path was requested.
func (r *Remote) Hits(path string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hits["/"+strings.TrimPrefix(path, "/")]
}
