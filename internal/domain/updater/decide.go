package updater

import (
	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
)

// Decide returns the state an entry moves to once its manifest is known:
// StateUpToDate, StateDevSkipped or StateDownloading. Versions compare
// numerically and developer mode only matters when an update exists.
func Decide(rec plugin.Record, m *remote.Manifest) EntryState {
	if m == nil || !m.IsNewerThan(rec.Version) {
		return StateUpToDate
	}
	if rec.Dev {
		return StateDevSkipped
	}
	return StateDownloading
}

// coordinates returns the remote location of a record's repository.
func coordinates(rec plugin.Record) remote.Coordinates {
	return remote.Coordinates{Repo: rec.Repo, Forge: rec.Forge}
}

// artifactName picks the file to download: the plugin's override wins over
// the manifest's target, which falls back to the default name.
func artifactName(rec plugin.Record, m *remote.Manifest) string {
	if rec.Target != "" {
		return rec.Target
	}
	return m.ArtifactName()
}
