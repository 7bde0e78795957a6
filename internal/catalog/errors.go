package catalog

import "errors"

var (
	// ErrNotFound is returned when no product matches the lookup.
	ErrNotFound = errors.New("product not found")

	// ErrInsufficientStock is returned when a decrement would drive quantity negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidQuantity is returned for non-positive decrement amounts.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrSnapshotIO is returned when the backing snapshot cannot be read or written.
	ErrSnapshotIO = errors.New("catalog snapshot unavailable")

	// ErrSnapshotParse is returned when the backing snapshot is malformed.
	ErrSnapshotParse = errors.New("catalog snapshot malformed")

	// ErrLockAcquire is returned when the distributed lock cannot be acquired.
	ErrLockAcquire = errors.New("failed to acquire catalog lock")
)
