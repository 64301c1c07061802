package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		desc    Descriptor
		wantErr string
	}{
		{
			name: "valid",
			desc: eligible("a", "p1", "a/p1", 3),
		},
		{
			name:    "missing namespace",
			desc:    Descriptor{ID: "p1", Version: intPtr(1), Dyna: &Marker{Repo: "a/p1"}},
			wantErr: "namespace is required",
		},
		{
			name:    "missing version",
			desc:    Descriptor{Namespace: "a", ID: "p1", Dyna: &Marker{Repo: "a/p1"}},
			wantErr: "version is required",
		},
		{
			name:    "negative version",
			desc:    Descriptor{Namespace: "a", ID: "p1", Version: intPtr(-1), Dyna: &Marker{Repo: "a/p1"}},
			wantErr: "version must not be negative",
		},
		{
			name:    "missing repo",
			desc:    Descriptor{Namespace: "a", ID: "p1", Version: intPtr(1), Dyna: &Marker{}},
			wantErr: "dyna.repo is required",
		},
		{
			name:    "no marker",
			desc:    Descriptor{Namespace: "a", ID: "p1", Version: intPtr(1)},
			wantErr: "dyna marker is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.desc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRecord(t *testing.T) {
	t.Parallel()

	desc := Descriptor{
		Namespace: "a",
		ID:        "p1",
		Version:   intPtr(3),
		Dyna: &Marker{
			Repo:          " a/p1 ",
			Dev:           true,
			ShouldRestart: true,
			Forge:         "codeberg.org",
			Target:        "dist/plugin.json",
		},
	}

	record, err := NewRecord(desc)
	require.NoError(t, err)
	assert.Equal(t, Record{
		Author:        "a",
		ID:            "p1",
		Repo:          "a/p1",
		Forge:         "codeberg.org",
		Target:        "dist/plugin.json",
		Version:       3,
		Dev:           true,
		ShouldRestart: true,
	}, record)
	assert.Equal(t, "a/p1", record.Key())
	assert.Equal(t, "a/p1@3", record.String())
}

func TestNewRecord_Defaults(t *testing.T) {
	t.Parallel()

	record, err := NewRecord(eligible("a", "p1", "a/p1", 0))
	require.NoError(t, err)
	assert.False(t, record.Dev)
	assert.False(t, record.ShouldRestart)
	assert.Empty(t, record.Forge)
	assert.Equal(t, 0, record.Version)
}

func TestParseObject(t *testing.T) {
	t.Parallel()

	t.Run("object", func(t *testing.T) {
		t.Parallel()
		obj, err := ParseObject([]byte(`{"namespace":"a","id":"p1","version":4,"extra":{"x":1}}`))
		require.NoError(t, err)
		assert.Equal(t, "a", obj.Namespace())
		assert.Equal(t, "p1", obj.ID())
		assert.Equal(t, "a/p1", obj.Key())
		v, ok := obj.Version()
		assert.True(t, ok)
		assert.Equal(t, 4, v)
		assert.Contains(t, obj, "extra")
	})

	t.Run("fractional version", func(t *testing.T) {
		t.Parallel()
		obj, err := ParseObject([]byte(`{"version":4.5}`))
		require.NoError(t, err)
		_, ok := obj.Version()
		assert.False(t, ok)
	})

	t.Run("array rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ParseObject([]byte(`[1,2]`))
		assert.Error(t, err)
	})

	t.Run("null rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ParseObject([]byte(`null`))
		assert.Error(t, err)
	})

	t.Run("trailing data rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ParseObject([]byte(`{"id":"a"} {"id":"b"}`))
		assert.Error(t, err)
	})
}
