package lighting

import "errors"

// Domain errors for the lighting adapter. None of them cross into
// orchestration: the adapter logs them and carries on.
var (
	// ErrRequestFailed wraps any failed call to a remote integration.
	ErrRequestFailed = errors.New("lighting: request failed")

	// ErrDisabled is returned when an operation targets an integration that is not configured.
	ErrDisabled = errors.New("lighting: integration disabled")

	// ErrNoSavedState is returned by RestoreState before any successful SaveState.
	ErrNoSavedState = errors.New("lighting: no saved state")
)
