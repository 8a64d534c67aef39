package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStatusConflict means a version was not in the status a transition expected.
	ErrStatusConflict = errors.New("version status conflict")
	// ErrReleaseInFlight means a release or rollback workflow is already running.
	ErrReleaseInFlight = errors.New("release already in flight")
)
