package device

import "errors"

// Domain-specific errors for device operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDeviceNotFound is returned when a device does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when registering a device whose id is
	// already taken.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrStateNotFound is returned when a device does not expose the
	// named state.
	ErrStateNotFound = errors.New("device: state not found")

	// ErrValueRejected is returned when a state declines a written value.
	ErrValueRejected = errors.New("device: value rejected")

	// ErrUnsupportedModel is returned when no factory matches a device's
	// model.
	ErrUnsupportedModel = errors.New("device: unsupported model")

	// ErrMissingDeviceID is returned when metadata lacks a device id.
	ErrMissingDeviceID = errors.New("device: missing device id")

	// ErrMissingModel is returned when metadata lacks a model.
	ErrMissingModel = errors.New("device: missing model")
)
