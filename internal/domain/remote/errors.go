package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrInvalidCoordinates indicates a repository coordinate or target cannot form a URL.
	ErrInvalidCoordinates = errors.New("invalid repository coordinates")
	// ErrTooLarge indicates a response body exceeded its size limit.
	ErrTooLarge = errors.New("response exceeds size limit")
	// ErrTruncated indicates a body ended before its declared content length.
	ErrTruncated = errors.New("response body truncated")
)

// StatusError reports an unexpected HTTP status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// ManifestUnavailableError indicates the remote manifest for a repository
// could not be retrieved or understood. Callers must treat it as "update
// status unknown", never as "up to date".
type ManifestUnavailableError struct {
	Repo string
	URL  string
	Err  error
}

func (e *ManifestUnavailableError) Error() string {
	return fmt.Sprintf("manifest unavailable for %s: %v", e.Repo, e.Err)
}

func (e *ManifestUnavailableError) Unwrap() error {
	return e.Err
}

// IsManifestUnavailable returns true if the error is a manifest fetch failure.
func IsManifestUnavailable(err error) bool {
	var manifestErr *ManifestUnavailableError
	return errors.As(err, &manifestErr)
}

// ArtifactFetchError indicates an artifact download did not complete.
type ArtifactFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ArtifactFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching artifact %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching artifact %s: %v", e.URL, e.Err)
}

func (e *ArtifactFetchError) Unwrap() error {
	return e.Err
}

// IsArtifactFetchError returns true if the error is an artifact download failure.
func IsArtifactFetchError(err error) bool {
	var fetchErr *ArtifactFetchError
	return errors.As(err, &fetchErr)
}
