package iot

import "errors"

// Domain-specific errors for the command lifecycle coordinator.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrStopped is returned when an operation is attempted on a stopped
	// coordinator.
	ErrStopped = errors.New("iot: coordinator stopped")

	// ErrBadEnvelope is returned when an inbound payload cannot be decoded
	// as a JSON object.
	ErrBadEnvelope = errors.New("iot: malformed envelope")

	// ErrEmptyTopic is returned when a publish is requested without a topic.
	ErrEmptyTopic = errors.New("iot: topic cannot be empty")
)
