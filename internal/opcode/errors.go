package opcode

import "errors"

// Domain errors for the opcode codec package.
var (
	// ErrFrameTooLarge is returned when identifier + payload bytes exceed
	// the space available before the checksum byte.
	ErrFrameTooLarge = errors.New("opcode: payload exceeds frame size")

	// ErrInvalidHex is returned when a hex string cannot be decoded.
	ErrInvalidHex = errors.New("opcode: invalid hex string")

	// ErrInvalidBase64 is returned when a base64 payload cannot be decoded.
	ErrInvalidBase64 = errors.New("opcode: invalid base64 payload")

	// ErrInvalidOpcode is returned when a value cannot be normalized to a
	// canonical opcode string.
	ErrInvalidOpcode = errors.New("opcode: invalid opcode")

	// ErrCommandNotFound is returned when a catalog lookup fails.
	ErrCommandNotFound = errors.New("opcode: command not found in catalog")
)
