package control

import "errors"

var (
	// ErrUnknownAction is returned for topics outside the known command set.
	ErrUnknownAction = errors.New("control: unknown action")

	// ErrInvalidPayload is returned when a command body is not valid JSON.
	ErrInvalidPayload = errors.New("control: invalid payload")

	// ErrMissingID is returned when a scene or trigger command has no id.
	ErrMissingID = errors.New("control: missing id")
)
