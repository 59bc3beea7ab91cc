package bucketsample

import "errors"

// Common errors returned by stores and the sampling pipeline.
var (
	// ErrNotFound is returned when an object key does not exist.
	ErrNotFound = errors.New("bucketsample: not found")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("bucketsample: store closed")

	// ErrReaderClosed is returned when reading from a closed reader.
	ErrReaderClosed = errors.New("bucketsample: reader closed")
)

// IsNotFound returns true if the error indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
