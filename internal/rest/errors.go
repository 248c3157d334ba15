package rest

import "errors"

// Domain-specific errors for the REST polling channel.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrBadStatus is returned when the vendor API answers with a
	// non-success status field in its JSON body.
	ErrBadStatus = errors.New("rest: unexpected api status")

	// ErrBadPayload is returned when a response body cannot be decoded
	// or a device entry is missing required fields.
	ErrBadPayload = errors.New("rest: malformed payload")

	// ErrStopped is returned when the poller has been shut down.
	ErrStopped = errors.New("rest: poller stopped")
)
