package store

import "github.com/cockroachdb/errors"

// Sentinel errors for the recoverable failure kinds. Check with errors.Is;
// wrap with errors.Wrap to add context while preserving the kind.
var (
	// ErrNotFound indicates the referenced vacancy id does not exist.
	ErrNotFound = errors.New("vacancy not found")

	// ErrAlreadyTaken indicates the vacancy was reserved by somebody else.
	ErrAlreadyTaken = errors.New("vacancy already taken")

	// ErrUnauthorized indicates a non-admin invoking a privileged operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidArgument indicates a malformed command argument.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrVoiceUnavailable indicates the voice content is missing or corrupt
	// at render time.
	ErrVoiceUnavailable = errors.New("voice content unavailable")
)
