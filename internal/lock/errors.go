package lock

import "errors"

// Sentinel errors for the lock package. Callers match with errors.Is.
var (
	// ErrSessionIDRequired is returned when a lookup is attempted without a session id.
	ErrSessionIDRequired = errors.New("session id is required")

	// ErrIssueIDRequired is returned when an operation is attempted without an issue id.
	ErrIssueIDRequired = errors.New("issue id is required")

	// ErrInvalidIssueID is returned for issue ids containing path separators.
	ErrInvalidIssueID = errors.New("issue id must not contain path separators")
)
