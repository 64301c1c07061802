package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	t.Run("single error", func(t *testing.T) {
		t.Parallel()
		err := &ValidationError{Errors: []string{"id is required"}}
		assert.Equal(t, "id is required", err.Error())
	})

	t.Run("multiple errors", func(t *testing.T) {
		t.Parallel()
		err := &ValidationError{}
		err.Add("id is required")
		err.Addf("version must not be negative, got %d", -2)
		assert.True(t, err.HasErrors())
		assert.Equal(t, "validation failed: id is required; version must not be negative, got -2", err.Error())
	})
}

func TestScanError(t *testing.T) {
	t.Parallel()

	underlying := errors.New("version is required")
	err := &ScanError{Key: "a/p1", Err: underlying}

	assert.Equal(t, "skipping plugin a/p1: version is required", err.Error())
	assert.ErrorIs(t, err, underlying)
}

func TestArtifactErrors(t *testing.T) {
	t.Parallel()

	parseErr := &ArtifactParseError{Reason: "invalid JSON", Err: errors.New("unexpected EOF")}
	assert.Equal(t, "parsing plugin artifact: invalid JSON: unexpected EOF", parseErr.Error())
	assert.Equal(t, "parsing plugin artifact: too large", (&ArtifactParseError{Reason: "too large"}).Error())
	assert.True(t, IsArtifactParseError(parseErr))
	assert.False(t, IsArtifactParseError(errors.New("other")))

	regErr := &HostRegistrationError{Key: "a/p1", Err: errors.New("denied")}
	assert.Equal(t, "host rejected plugin a/p1: denied", regErr.Error())
	assert.True(t, IsHostRegistrationError(regErr))
	assert.False(t, IsHostRegistrationError(parseErr))

	dup := &DuplicateRecordError{Key: "a/p1"}
	assert.Equal(t, `plugin "a/p1" already in store`, dup.Error())
}
