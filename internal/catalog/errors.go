package catalog

import "errors"

// Domain errors for the state catalog package.
var (
	// ErrStateNotFound is returned when a named state has no catalog entry.
	ErrStateNotFound = errors.New("catalog: state not found")

	// ErrTemplateNotFound is returned when a state entry carries no command
	// template with the requested name.
	ErrTemplateNotFound = errors.New("catalog: command template not found")

	// ErrBadTemplate is returned for malformed template text, such as an
	// unterminated expression.
	ErrBadTemplate = errors.New("catalog: malformed payload template")

	// ErrUnknownToken is returned when a template references a name absent
	// from the render context.
	ErrUnknownToken = errors.New("catalog: unknown template token")

	// ErrUnsupportedFilter is returned for template filters outside the
	// supported set.
	ErrUnsupportedFilter = errors.New("catalog: unsupported template filter")

	// ErrBadIdentifier is returned when an entry's opcode text cannot be
	// parsed as a byte value.
	ErrBadIdentifier = errors.New("catalog: malformed identifier opcode")
)
