package updater

import (
	"context"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
)

// ManifestSource retrieves remote manifests.
type ManifestSource interface {
	Fetch(ctx context.Context, c remote.Coordinates) (*remote.Manifest, error)
}

// ArtifactSource downloads artifact text.
type ArtifactSource interface {
	Download(ctx context.Context, url string) (string, error)
}

// PluginLoader parses an artifact and registers it with the host.
type PluginLoader interface {
	Load(ctx context.Context, raw string) (plugin.Object, error)
}

// MetricsRecorder observes finished cycles.
type MetricsRecorder interface {
	ObserveCycle(report *CycleReport)
}
