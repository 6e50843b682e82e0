package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/fifoguard/internal/clock"
	"github.com/rpggio/fifoguard/internal/domain/change"
)

// ConflictStore implements change.ConflictStore for SQLite.
type ConflictStore struct {
	db *DB
}

// NewConflictStore creates a new ConflictStore.
func NewConflictStore(db *DB) *ConflictStore {
	return &ConflictStore{db: db}
}

// querier is satisfied by both *DB and *sql.Tx, so the row-reading
// helpers below work inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenIfAbsent creates an open conflict for (sessionID, step, fieldPath)
// with the given members, or unions the members into the existing open
// one if a concurrent detector already created it.
func (r *ConflictStore) OpenIfAbsent(ctx context.Context, sessionID string, step int, fieldPath string, changeIDs []string, detectedAt time.Time, strategy change.Strategy) (*change.FieldConflict, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := findOpen(ctx, tx, sessionID, step, fieldPath)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		conflictID := uuid.NewString()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO field_conflicts (
				conflict_id, session_id, step_number, field_path,
				detected_at_wall, detected_at_seq, resolution_strategy
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`, conflictID, sessionID, step, fieldPath, detectedAt, 0, string(strategy))
		if err != nil {
			return nil, fmt.Errorf("failed to open conflict: %w", err)
		}
		existing = &change.FieldConflict{
			ConflictID:         conflictID,
			SessionID:          sessionID,
			StepNumber:         step,
			FieldPath:          fieldPath,
			DetectedAt:         clock.Timestamp{Wall: detectedAt},
			ResolutionStrategy: strategy,
		}
	}

	for _, id := range changeIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO conflict_members (conflict_id, change_id) VALUES (?, ?)
		`, existing.ConflictID, id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("%w: change id %q not found in field_change_queue", change.ErrUnavailable, id)
			}
			return nil, fmt.Errorf("failed to record conflict member: %w", err)
		}
	}

	members, err := conflictMembers(ctx, tx, existing.ConflictID)
	if err != nil {
		return nil, err
	}
	existing.ConflictingChanges = members

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return existing, nil
}

// conflictMembers lists the change ids belonging to conflictID.
func conflictMembers(ctx context.Context, q querier, conflictID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT change_id FROM conflict_members WHERE conflict_id = ? ORDER BY change_id
	`, conflictID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflict members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan conflict member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindOpen returns the open conflict for (sessionID, step, fieldPath).
func (r *ConflictStore) FindOpen(ctx context.Context, sessionID string, step int, fieldPath string) (*change.FieldConflict, error) {
	conflict, err := findOpen(ctx, r.db, sessionID, step, fieldPath)
	if err != nil {
		return nil, err
	}
	if conflict == nil {
		return nil, nil
	}
	members, err := conflictMembers(ctx, r.db, conflict.ConflictID)
	if err != nil {
		return nil, err
	}
	conflict.ConflictingChanges = members
	return conflict, nil
}

func findOpen(ctx context.Context, q querier, sessionID string, step int, fieldPath string) (*change.FieldConflict, error) {
	row := q.QueryRowContext(ctx, `
		SELECT conflict_id, session_id, step_number, field_path,
		       detected_at_wall, detected_at_seq, resolution_strategy,
		       resolved_at, resolved_by, final_value
		FROM field_conflicts
		WHERE session_id = ? AND step_number = ? AND field_path = ? AND resolved_at IS NULL
	`, sessionID, step, fieldPath)
	conflict, err := scanConflict(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query open conflict: %w", err)
	}
	return conflict, nil
}

// FindForChange returns the conflict record that lists changeID as a
// member, whether the conflict is still open or already resolved.
func (r *ConflictStore) FindForChange(ctx context.Context, changeID string) (*change.FieldConflict, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT fc.conflict_id, fc.session_id, fc.step_number, fc.field_path,
		       fc.detected_at_wall, fc.detected_at_seq, fc.resolution_strategy,
		       fc.resolved_at, fc.resolved_by, fc.final_value
		FROM field_conflicts fc
		JOIN conflict_members cm ON cm.conflict_id = fc.conflict_id
		WHERE cm.change_id = ?
	`, changeID)
	conflict, err := scanConflict(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conflict for change: %w", err)
	}

	members, err := conflictMembers(ctx, r.db, conflict.ConflictID)
	if err != nil {
		return nil, err
	}
	conflict.ConflictingChanges = members
	return conflict, nil
}

func scanConflict(row *sql.Row) (*change.FieldConflict, error) {
	var c change.FieldConflict
	var wall time.Time
	var seq uint64
	var strategy string
	var resolvedAt sql.NullTime
	var resolvedBy sql.NullString
	var finalValue sql.NullString

	err := row.Scan(
		&c.ConflictID, &c.SessionID, &c.StepNumber, &c.FieldPath,
		&wall, &seq, &strategy,
		&resolvedAt, &resolvedBy, &finalValue,
	)
	if err != nil {
		return nil, err
	}

	c.DetectedAt = clock.Timestamp{Wall: wall, Seq: seq}
	c.ResolutionStrategy = change.Strategy(strategy)
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Time
	}
	if resolvedBy.Valid {
		c.ResolvedBy = resolvedBy.String
	}
	if finalValue.Valid {
		v, err := unmarshalValue(finalValue.String)
		if err != nil {
			return nil, fmt.Errorf("unmarshaling final value: %w", err)
		}
		c.FinalValue = v
	}
	return &c, nil
}

// Close transitions a conflict to resolved.
func (r *ConflictStore) Close(ctx context.Context, conflictID string, resolvedBy string, finalValue any, resolvedAt time.Time) error {
	encoded, err := marshalValue(finalValue)
	if err != nil {
		return fmt.Errorf("marshaling final value: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE field_conflicts
		SET resolved_at = ?, resolved_by = ?, final_value = ?
		WHERE conflict_id = ? AND resolved_at IS NULL
	`, resolvedAt, resolvedBy, encoded, conflictID)
	if err != nil {
		return fmt.Errorf("failed to close conflict: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		var count int
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM field_conflicts WHERE conflict_id = ?`, conflictID).Scan(&count); err != nil {
			return fmt.Errorf("failed to verify conflict: %w", err)
		}
		if count == 0 {
			return change.ErrConflictNotFound
		}
		return change.ErrAlreadyResolved
	}
	return nil
}

// OpenFor lists open conflicts for a session, optionally restricted to
// one step.
func (r *ConflictStore) OpenFor(ctx context.Context, sessionID string, step *int) ([]change.FieldConflict, error) {
	query := `
		SELECT conflict_id, session_id, step_number, field_path,
		       detected_at_wall, detected_at_seq, resolution_strategy,
		       resolved_at, resolved_by, final_value
		FROM field_conflicts
		WHERE session_id = ? AND resolved_at IS NULL
	`
	args := []any{sessionID}
	if step != nil {
		query += " AND step_number = ?"
		args = append(args, *step)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list open conflicts: %w", err)
	}
	defer rows.Close()

	var conflictIDs []string
	var conflicts []change.FieldConflict
	for rows.Next() {
		var c change.FieldConflict
		var wall time.Time
		var seq uint64
		var strategy string
		var resolvedAt sql.NullTime
		var resolvedBy sql.NullString
		var finalValue sql.NullString

		if err := rows.Scan(
			&c.ConflictID, &c.SessionID, &c.StepNumber, &c.FieldPath,
			&wall, &seq, &strategy,
			&resolvedAt, &resolvedBy, &finalValue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conflict: %w", err)
		}
		c.DetectedAt = clock.Timestamp{Wall: wall, Seq: seq}
		c.ResolutionStrategy = change.Strategy(strategy)
		conflicts = append(conflicts, c)
		conflictIDs = append(conflictIDs, c.ConflictID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conflict rows: %w", err)
	}

	for i := range conflicts {
		members, err := conflictMembers(ctx, r.db, conflictIDs[i])
		if err != nil {
			return nil, err
		}
		conflicts[i].ConflictingChanges = members
	}
	return conflicts, nil
}

// Stats returns the total/resolved conflict counters for a session.
func (r *ConflictStore) Stats(ctx context.Context, sessionID string) (total, resolved int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(CASE WHEN resolved_at IS NOT NULL THEN 1 END)
		FROM field_conflicts WHERE session_id = ?
	`, sessionID).Scan(&total, &resolved)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read conflict stats: %w", err)
	}
	return total, resolved, nil
}
