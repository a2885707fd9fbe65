package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates the input failed domain validation.
	ErrValidation = errors.New("validation error")
	// ErrConflict indicates the operation conflicts with current state.
	ErrConflict = errors.New("conflict")
)
