package updater

import "errors"

// Sentinel errors for programmatic error handling.
var (
	// ErrInactive indicates the service was shut down.
	ErrInactive = errors.New("updater is shut down")
	// ErrAlreadyStarted indicates the scheduler or service was already started.
	ErrAlreadyStarted = errors.New("updater already started")
	// ErrNoReloader indicates a restart was requested without a reloader.
	ErrNoReloader = errors.New("no reloader configured")
	// ErrMissingDependency indicates a required collaborator was nil.
	ErrMissingDependency = errors.New("missing dependency")
)
