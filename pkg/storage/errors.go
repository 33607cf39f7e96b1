package storage

import "errors"

var (
	// ErrNotFound indicates the requested blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidKey indicates a key that is empty, absolute or escapes its prefix.
	ErrInvalidKey = errors.New("invalid storage key")
)
