package session

import "errors"

// Common errors for session operations.
var (
	ErrInvalidConfig    = errors.New("session: invalid configuration")
	ErrInvalidStoreType = errors.New("session: invalid store type")
	ErrNotFound         = errors.New("session: not found")
)
