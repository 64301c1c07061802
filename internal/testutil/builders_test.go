package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
)

func TestDescriptorBuilder(t *testing.T) {
	t.Parallel()

	d := NewDescriptor("amy", "theme").
		WithVersion(3).
		WithForge("codeberg.org").
		WithTarget("dist/theme.json").
		Dev().
		Restart().
		Build()

	require.NoError(t, d.Validate())
	assert.Equal(t, "amy/theme", d.Key())
	assert.Equal(t, 3, *d.Version)
	assert.Equal(t, "amy/theme", d.Dyna.Repo)
	assert.True(t, d.Dyna.Dev)
	assert.True(t, d.Dyna.ShouldRestart)
	assert.Equal(t, "codeberg.org", d.Dyna.Forge)

	plain := NewDescriptor("amy", "plain").Unmarked().WithoutVersion().Build()
	assert.False(t, plain.Eligible())
	assert.Nil(t, plain.Version)
}

func TestDescriptorBuilder_BuildCopies(t *testing.T) {
	t.Parallel()

	b := NewDescriptor("amy", "theme")
	first := b.Build()
	b.WithVersion(9).Dev()

	assert.Equal(t, 1, *first.Version)
	assert.False(t, first.Dyna.Dev)
}

func TestDescriptorBuilder_ToJSON(t *testing.T) {
	t.Parallel()

	var d plugin.Descriptor
	require.NoError(t, json.Unmarshal([]byte(NewDescriptor("amy", "theme").Restart().ToJSON()), &d))
	assert.Equal(t, "theme", d.ID)
	assert.True(t, d.Dyna.ShouldRestart)
}

func TestArtifactAndManifestJSON(t *testing.T) {
	t.Parallel()

	obj, err := plugin.ParseObject([]byte(ArtifactJSON("amy", "theme", 5)))
	require.NoError(t, err)
	assert.Equal(t, "amy/theme", obj.Key())
	v, ok := obj.Version()
	assert.True(t, ok)
	assert.Equal(t, 5, v)

	assert.JSONEq(t, `{"latest":2}`, ManifestJSON(2, ""))
	assert.JSONEq(t, `{"latest":2,"target":"x.json"}`, ManifestJSON(2, "x.json"))
}
