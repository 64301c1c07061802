// Package host provides a plugin registry backed by a directory of
// descriptor files, one file per installed plugin.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/ports"
)

// ErrInvalidIdentity is returned when a plugin's namespace or id cannot be
// used as part of a file name.
var ErrInvalidIdentity = errors.New("invalid plugin identity")

// DirRegistry implements plugin.Host on top of a directory. Descriptors are
// read from *.json, *.yaml and *.yml files; registrations are written as
// <namespace>.<id>.json and replace the whole file.
type DirRegistry struct {
	mu     sync.Mutex
	dir    string
	logger ports.Logger
}

// NewDirRegistry creates a registry rooted at dir, creating it if needed.
func NewDirRegistry(dir string, logger ports.Logger) (*DirRegistry, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("registry directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}
	if logger == nil {
		logger = ports.Discard()
	}
	return &DirRegistry{dir: dir, logger: logger}, nil
}

// Dir returns the registry directory.
func (r *DirRegistry) Dir() string {
	return r.dir
}

// Plugins reads every descriptor file. Unreadable files are logged and left
// out; when two files declare the same plugin the first in name order wins.
func (r *DirRegistry) Plugins(ctx context.Context) (map[string]plugin.Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]plugin.Descriptor, len(entries))
	for _, e := range entries {
		out[e.descriptor.Key()] = e.descriptor
	}
	return out, nil
}

// Add writes obj as the plugin's descriptor file, replacing any previous
// file for the same plugin.
func (r *DirRegistry) Add(ctx context.Context, obj plugin.Object) error {
	name, err := FileName(obj.Namespace(), obj.ID())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding plugin %s: %w", obj.Key(), err)
	}
	data = append(data, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.scan(ctx)
	if err != nil {
		return err
	}

	path := filepath.Join(r.dir, name)
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("writing plugin %s: %w", obj.Key(), err)
	}

	for _, e := range entries {
		if e.descriptor.Key() == obj.Key() && e.path != path {
			if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
				r.logger.Warn(ctx, "could not remove replaced descriptor", ports.F("path", e.path), ports.Err(err))
			}
		}
	}

	r.logger.Debug(ctx, "plugin written", ports.F("key", obj.Key()), ports.F("path", path))
	return nil
}

// FileName returns the descriptor file name for a plugin identity.
func FileName(namespace, id string) (string, error) {
	for _, part := range []string{namespace, id} {
		if strings.TrimSpace(part) == "" || part == "." || part == ".." ||
			strings.ContainsAny(part, `/\`) || strings.ContainsRune(part, 0) {
			return "", fmt.Errorf("%w: %q/%q", ErrInvalidIdentity, namespace, id)
		}
	}
	return namespace + "." + id + ".json", nil
}

type entry struct {
	path       string
	descriptor plugin.Descriptor
}

func (r *DirRegistry) scan(ctx context.Context) ([]entry, error) {
	files, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("reading registry directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if f.IsDir() || !isDescriptorFile(f.Name()) {
			continue
		}
		names = append(names, f.Name())
	}
	sort.Strings(names)

	seen := make(map[string]bool, len(names))
	entries := make([]entry, 0, len(names))
	for _, name := range names {
		path := filepath.Join(r.dir, name)
		d, err := readDescriptor(path)
		if err != nil {
			r.logger.Warn(ctx, "skipping unreadable descriptor", ports.F("path", path), ports.Err(err))
			continue
		}
		if seen[d.Key()] {
			r.logger.Warn(ctx, "skipping duplicate descriptor", ports.F("path", path), ports.F("key", d.Key()))
			continue
		}
		seen[d.Key()] = true
		entries = append(entries, entry{path: path, descriptor: d})
	}
	return entries, nil
}

func isDescriptorFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return !strings.HasPrefix(name, ".")
	default:
		return false
	}
}

func readDescriptor(path string) (plugin.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return plugin.Descriptor{}, err
	}

	var d plugin.Descriptor
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &d)
	} else {
		err = yaml.Unmarshal(data, &d)
	}
	if err != nil {
		return plugin.Descriptor{}, err
	}
	return d, nil
}

// writeAtomic writes data to a temp file in the target directory and renames
// it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dyna-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure DirRegistry implements plugin.Host.
var _ plugin.Host = (*DirRegistry)(nil)
