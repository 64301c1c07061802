package plugin

import "context"

// Host is the port to the host application's plugin registry. The registry is
// owned by the host; the updater only reads it and hands it replacements.
type Host interface {
	// Plugins returns the host's loaded plugins keyed by composite key.
	Plugins(ctx context.Context) (map[string]Descriptor, error)

	// Add registers a freshly loaded plugin, replacing any previous version.
	Add(ctx context.Context, obj Object) error
}
