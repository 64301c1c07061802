package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_ManifestURL(t *testing.T) {
	t.Parallel()

	r := DefaultResolver()

	tests := []struct {
		name    string
		coords  Coordinates
		want    string
		wantErr bool
	}{
		{
			name:   "default host",
			coords: Coordinates{Repo: "amycatgirl/dyna"},
			want:   "https://raw.githubusercontent.com/amycatgirl/dyna/main/dyna.json",
		},
		{
			name:   "forge host",
			coords: Coordinates{Repo: "amy/theme", Forge: "codeberg.org"},
			want:   "https://codeberg.org/amy/theme/raw/branch/main/dyna.json",
		},
		{
			name:   "surrounding slashes trimmed",
			coords: Coordinates{Repo: "/amy/theme/"},
			want:   "https://raw.githubusercontent.com/amy/theme/main/dyna.json",
		},
		{name: "empty repo", coords: Coordinates{}, wantErr: true},
		{name: "missing owner", coords: Coordinates{Repo: "theme"}, wantErr: true},
		{name: "parent segment", coords: Coordinates{Repo: "amy/../etc"}, wantErr: true},
		{name: "forge with path", coords: Coordinates{Repo: "amy/theme", Forge: "codeberg.org/x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := r.ManifestURL(tt.coords)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidCoordinates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_ArtifactURL(t *testing.T) {
	t.Parallel()

	r := Resolver{DefaultBase: "http://127.0.0.1:9000/", ForgeScheme: "http"}

	got, err := r.ArtifactURL(Coordinates{Repo: "amy/theme"}, "dist/plugin.json")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/amy/theme/main/dist/plugin.json", got)

	got, err = r.ArtifactURL(Coordinates{Repo: "amy/theme", Forge: "git.local:3000"}, "plugin.json")
	require.NoError(t, err)
	assert.Equal(t, "http://git.local:3000/amy/theme/raw/branch/main/plugin.json", got)

	for _, bad := range []string{"", "/etc/passwd", "../secret.json", `dist\plugin.json`, "dist//plugin.json"} {
		_, err := r.ArtifactURL(Coordinates{Repo: "amy/theme"}, bad)
		assert.ErrorIs(t, err, ErrInvalidCoordinates, "target %q", bad)
	}
}

func TestCoordinates_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "amy/theme", Coordinates{Repo: "amy/theme"}.String())
	assert.Equal(t, "codeberg.org/amy/theme", Coordinates{Repo: "amy/theme", Forge: "codeberg.org"}.String())
}
