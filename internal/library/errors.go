package library

import (
	"errors"
	"fmt"
)

// Sentinel errors for library operations
var (
	// ErrNotFound indicates that no story exists under the requested LUID
	ErrNotFound = errors.New("story not found")

	// ErrUnsupported is raised (as a panic) when an operation is meaningless
	// for a backend, such as asking a remote library for a local file
	ErrUnsupported = errors.New("operation not supported by this library")

	// ErrReadOnly indicates a mutation was attempted on a library that is
	// not writable
	ErrReadOnly = errors.New("library is not writable")

	// ErrNoAdapter indicates no input or output format can handle a request
	ErrNoAdapter = errors.New("no format adapter available")

	// ErrUnauthorized indicates the library refused the credentials
	ErrUnauthorized = errors.New("library access unauthorized")

	// ErrInvalidMeta indicates the metadata of a story failed validation
	ErrInvalidMeta = errors.New("invalid story metadata")
)

// NotFoundError carries the LUID of a missing story.
type NotFoundError struct {
	LUID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("story %q not found", e.LUID)
}

// Is makes errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(luid string) error {
	return &NotFoundError{LUID: luid}
}
