package change

import (
	"context"
	"time"
)

// ChangeStore persists FieldChange records (C2).
type ChangeStore interface {
	// Append durably stores change. Returns ErrDuplicateChangeID if
	// change.ChangeID already exists.
	Append(ctx context.Context, fc *FieldChange) error

	// PendingFor returns all unprocessed changes for (sessionID, step),
	// ordered by timestamp ascending, ties broken by change_id.
	PendingFor(ctx context.Context, sessionID string, step int) ([]FieldChange, error)

	// PendingForField restricts PendingFor to a single field path.
	PendingForField(ctx context.Context, sessionID string, step int, fieldPath string) ([]FieldChange, error)

	// MarkProcessed atomically flips is_processed to true for the given
	// ids. Idempotent for already-processed ids.
	MarkProcessed(ctx context.Context, changeIDs []string, processedAt time.Time) error

	// MarkConflictDetected flags the given ids as conflict_detected.
	MarkConflictDetected(ctx context.Context, changeIDs []string) error

	// History returns the full audit view (processed and unprocessed)
	// for (sessionID, fieldPath), ordered by timestamp ascending.
	History(ctx context.Context, sessionID, fieldPath string) ([]FieldChange, error)

	// LatestTimestamp returns the most recent timestamp stored for
	// (sessionID, step), used to seed the clock after a restart.
	LatestTimestamp(ctx context.Context, sessionID string, step int) (lastWall time.Time, lastSeq uint64, found bool, err error)

	// Stats returns the total/processed/pending change counters for a
	// session.
	Stats(ctx context.Context, sessionID string) (total, processed, pending int, err error)

	// DeleteProcessedOlderThan removes processed changes whose
	// processed_at predates cutoff, returning the count removed.
	DeleteProcessedOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// ConflictStore persists FieldConflict records (C3).
type ConflictStore interface {
	// OpenIfAbsent creates an open conflict for (sessionID, step,
	// fieldPath) with the given member changeIDs and strategy, or
	// returns the existing open one with changeIDs unioned in.
	OpenIfAbsent(ctx context.Context, sessionID string, step int, fieldPath string, changeIDs []string, detectedAt time.Time, strategy Strategy) (*FieldConflict, error)

	// FindOpen returns the open conflict for (sessionID, step,
	// fieldPath), if any.
	FindOpen(ctx context.Context, sessionID string, step int, fieldPath string) (*FieldConflict, error)

	// FindForChange returns the conflict record that lists changeID as
	// a member, open or already resolved. A change flagged
	// conflict_detected is a member of exactly one conflict for its
	// lifetime, even after that conflict closes.
	FindForChange(ctx context.Context, changeID string) (*FieldConflict, error)

	// Close transitions a conflict to resolved. Returns
	// ErrAlreadyResolved if it was already closed, ErrConflictNotFound
	// if conflictID is unknown.
	Close(ctx context.Context, conflictID string, resolvedBy string, finalValue any, resolvedAt time.Time) error

	// OpenFor lists open conflicts for a session, optionally restricted
	// to one step.
	OpenFor(ctx context.Context, sessionID string, step *int) ([]FieldConflict, error)

	// Stats returns the total/resolved conflict counters for a session.
	Stats(ctx context.Context, sessionID string) (total, resolved int, err error)
}

// DocumentStore is the external collaborator's step document: the
// nested `data` object the DocumentApplier safe-merges into (C7). The
// core treats it as a foreign collection with atomic single-document
// update semantics (spec §6); this package only consumes the contract.
type DocumentStore interface {
	// GetStepData returns the step's current nested document, or an
	// empty map if the step has no document yet.
	GetStepData(ctx context.Context, sessionID string, step int) (map[string]any, error)

	// CommitStepUpdate atomically replaces the step's document and
	// stamps last_modified/modified_by.
	CommitStepUpdate(ctx context.Context, sessionID string, step int, data map[string]any, modifiedAt time.Time, modifiedBy string) error
}

// AuditStore persists AuditEntry records (C9), append-only.
type AuditStore interface {
	Append(ctx context.Context, entry AuditEntry) error
	List(ctx context.Context, sessionID string, limit int) ([]AuditEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
