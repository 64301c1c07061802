package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrNilHost indicates a store or loader was built without a host registry.
	ErrNilHost = errors.New("host registry cannot be nil")
	// ErrEmptyArtifact indicates a fetched artifact had no content.
	ErrEmptyArtifact = errors.New("artifact is empty")
)

// ValidationError collects multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// Add adds an error message to the collection.
func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

// Addf adds a formatted error message to the collection.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// IsValidationError returns true if the error is a validation error.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// ScanError records why a host registry entry was left out of the store.
type ScanError struct {
	Key string
	Err error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("skipping plugin %s: %v", e.Key, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// DuplicateRecordError indicates two registry entries resolved to the same (author, id).
type DuplicateRecordError struct {
	Key string
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("plugin %q already in store", e.Key)
}

// ArtifactParseError indicates fetched artifact content could not be parsed.
type ArtifactParseError struct {
	Reason string
	Err    error
}

func (e *ArtifactParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing plugin artifact: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parsing plugin artifact: %s", e.Reason)
}

func (e *ArtifactParseError) Unwrap() error {
	return e.Err
}

// IsArtifactParseError returns true if the error is an artifact parse failure.
func IsArtifactParseError(err error) bool {
	var parseErr *ArtifactParseError
	return errors.As(err, &parseErr)
}

// HostRegistrationError indicates the host rejected a parsed plugin.
type HostRegistrationError struct {
	Key string
	Err error
}

func (e *HostRegistrationError) Error() string {
	return fmt.Sprintf("host rejected plugin %s: %v", e.Key, e.Err)
}

func (e *HostRegistrationError) Unwrap() error {
	return e.Err
}

// IsHostRegistrationError returns true if the host refused to register a plugin.
func IsHostRegistrationError(err error) bool {
	var regErr *HostRegistrationError
	return errors.As(err, &regErr)
}
