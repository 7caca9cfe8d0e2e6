package statehub

import "errors"

// Common errors for entity state operations.
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidStoreType = errors.New("invalid store type")
	ErrNotFound         = errors.New("session not found")
	ErrInvalidInput     = errors.New("invalid input")
)
