package archive

import "errors"

var (
	// ErrNotFound is returned when nothing was committed yet.
	ErrNotFound = errors.New("archive: no committed version")

	// ErrCurrentVersion is returned when deleting the current version.
	ErrCurrentVersion = errors.New("archive: cannot delete the current version")

	// ErrInvalidPointer is returned when CURRENT names no version.
	ErrInvalidPointer = errors.New("archive: invalid CURRENT pointer")
)
