package memory

import "errors"

// Error definitions for the memory package.
var (
	ErrEmptyModelID = errors.New("model id must not be empty")
	ErrInvalidSize  = errors.New("model size must be positive")
)
