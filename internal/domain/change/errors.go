package change

import "errors"

var (
	// ErrInvalidFieldPath indicates an empty path or an empty segment.
	ErrInvalidFieldPath = errors.New("invalid field path")
	// ErrDuplicateChangeID indicates a change_id that was already queued;
	// safe to treat as a no-op retry.
	ErrDuplicateChangeID = errors.New("duplicate change id")
	// ErrUnavailable indicates a transient storage failure. Every public
	// operation is safe to retry.
	ErrUnavailable = errors.New("store unavailable")
	// ErrPathConflict indicates the stored document has a non-object
	// value where a field path still has segments left to traverse.
	ErrPathConflict = errors.New("path conflict")
	// ErrConflictNotFound indicates a manual-resolution request named a
	// field path with no open conflict.
	ErrConflictNotFound = errors.New("conflict not found")
	// ErrAlreadyResolved indicates a manual-resolution request targeted
	// a conflict that was already closed.
	ErrAlreadyResolved = errors.New("conflict already resolved")
	// ErrInvalidStrategy indicates a strategy outside the closed set.
	ErrInvalidStrategy = errors.New("invalid resolution strategy")
)
