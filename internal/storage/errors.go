package storage

import "errors"

// Storage errors shared by ledger, aggregate and cursor stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert collides with an existing key.
	// Ledger appends translate it into created=false instead of returning it.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCursorRegression is returned when saving a cursor below the stored one.
	ErrCursorRegression = errors.New("cursor regression")
)
