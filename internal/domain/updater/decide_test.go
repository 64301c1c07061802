package updater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version int
		latest  int
		dev     bool
		want    EntryState
	}{
		{name: "equal versions", version: 3, latest: 3, want: StateUpToDate},
		{name: "local ahead", version: 5, latest: 3, want: StateUpToDate},
		{name: "remote ahead", version: 3, latest: 4, want: StateDownloading},
		{name: "dev and remote ahead", version: 3, latest: 4, dev: true, want: StateDevSkipped},
		{name: "dev and equal", version: 4, latest: 4, dev: true, want: StateUpToDate},
		{name: "numeric not lexical", version: 9, latest: 10, want: StateDownloading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := plugin.Record{Author: "amy", ID: "theme", Version: tt.version, Dev: tt.dev}
			assert.Equal(t, tt.want, Decide(rec, &remote.Manifest{Latest: tt.latest}))
		})
	}
}

func TestDecide_NilManifest(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StateUpToDate, Decide(plugin.Record{Version: 1}, nil))
}

func TestDecide_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		version := rapid.IntRange(0, 1000).Draw(t, "version")
		latest := rapid.IntRange(0, 1000).Draw(t, "latest")
		dev := rapid.Bool().Draw(t, "dev")

		got := Decide(plugin.Record{Version: version, Dev: dev}, &remote.Manifest{Latest: latest})

		switch {
		case latest <= version:
			assert.Equal(t, StateUpToDate, got)
		case dev:
			assert.Equal(t, StateDevSkipped, got)
		default:
			assert.Equal(t, StateDownloading, got)
		}
		assert.Equal(t, got == StateDownloading, latest > version && !dev)
	})
}

func TestArtifactName(t *testing.T) {
	t.Parallel()

	m := &remote.Manifest{Latest: 2, Target: "dist/theme.json"}
	assert.Equal(t, "dist/theme.json", artifactName(plugin.Record{}, m))
	assert.Equal(t, "override.json", artifactName(plugin.Record{Target: "override.json"}, m))
	assert.Equal(t, remote.DefaultTarget, artifactName(plugin.Record{}, &remote.Manifest{Latest: 2}))
}
