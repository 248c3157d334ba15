package state

import "errors"

// Domain errors for the state package.
var (
	// ErrUnknownMode is returned when a mode token cannot be resolved to a
	// registered delegate or catalog label.
	ErrUnknownMode = errors.New("state: unknown mode")

	// ErrNotCommandable is returned when a write is attempted against a
	// mode state that has no command template.
	ErrNotCommandable = errors.New("state: state is not commandable")

	// ErrBadHistoryDepth is returned when a bounded stack is created with a
	// non-positive capacity.
	ErrBadHistoryDepth = errors.New("state: history depth must be positive")
)
