package errors

import "errors"

// Sentinel errors shared across packages. Package-local protocol errors
// (double borrow, shelve without borrow, etc.) live next to the code that
// raises them.
var (
	// ErrInvalidConfig indicates the calpipe configuration could not be loaded or parsed.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates a pipeline input that is neither a model file,
	// an association manifest, nor an in-memory model or library.
	ErrInvalidInput = errors.New("invalid pipeline input")

	// ErrUnknownStep indicates a step name requested on the command line that
	// has no registered implementation.
	ErrUnknownStep = errors.New("unknown step")
)
