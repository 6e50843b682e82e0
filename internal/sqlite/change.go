package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/fifoguard/internal/clock"
	"github.com/rpggio/fifoguard/internal/domain/change"
)

// ChangeStore implements change.ChangeStore for SQLite.
type ChangeStore struct {
	db *DB
}

// NewChangeStore creates a new ChangeStore.
func NewChangeStore(db *DB) *ChangeStore {
	return &ChangeStore{db: db}
}

// Append inserts a new field change row.
func (r *ChangeStore) Append(ctx context.Context, fc *change.FieldChange) error {
	oldValue, err := marshalValue(fc.OldValue)
	if err != nil {
		return fmt.Errorf("marshaling old value: %w", err)
	}
	newValue, err := marshalValue(fc.NewValue)
	if err != nil {
		return fmt.Errorf("marshaling new value: %w", err)
	}

	query := `
		INSERT INTO field_change_queue (
			change_id, session_id, step_number, field_path,
			old_value, new_value, user_id, user_name,
			ts_wall, ts_seq, is_processed, conflict_detected
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0)
	`

	_, err = r.db.ExecContext(ctx, query,
		fc.ChangeID, fc.SessionID, fc.StepNumber, fc.FieldPath,
		oldValue, newValue, fc.UserID, fc.UserName,
		fc.Timestamp.Wall, fc.Timestamp.Seq,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return change.ErrDuplicateChangeID
		}
		return fmt.Errorf("failed to insert field change: %w", err)
	}
	return nil
}

// PendingFor returns every unprocessed change for (sessionID, step).
func (r *ChangeStore) PendingFor(ctx context.Context, sessionID string, step int) ([]change.FieldChange, error) {
	return r.queryPending(ctx, `
		SELECT change_id, session_id, step_number, field_path,
		       old_value, new_value, user_id, user_name,
		       ts_wall, ts_seq, is_processed, conflict_detected
		FROM field_change_queue
		WHERE session_id = ? AND step_number = ? AND is_processed = 0
		ORDER BY ts_wall ASC, ts_seq ASC, change_id ASC
	`, sessionID, step)
}

// PendingForField restricts PendingFor to one field path.
func (r *ChangeStore) PendingForField(ctx context.Context, sessionID string, step int, fieldPath string) ([]change.FieldChange, error) {
	return r.queryPending(ctx, `
		SELECT change_id, session_id, step_number, field_path,
		       old_value, new_value, user_id, user_name,
		       ts_wall, ts_seq, is_processed, conflict_detected
		FROM field_change_queue
		WHERE session_id = ? AND step_number = ? AND field_path = ? AND is_processed = 0
		ORDER BY ts_wall ASC, ts_seq ASC, change_id ASC
	`, sessionID, step, fieldPath)
}

func (r *ChangeStore) queryPending(ctx context.Context, query string, args ...any) ([]change.FieldChange, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending changes: %w", err)
	}
	defer rows.Close()

	var changes []change.FieldChange
	for rows.Next() {
		fc, err := scanFieldChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field change rows: %w", err)
	}
	return changes, nil
}

func scanFieldChange(rows *sql.Rows) (change.FieldChange, error) {
	var fc change.FieldChange
	var oldValue, newValue string
	var wall time.Time
	var seq uint64
	var isProcessed, conflictDetected int

	err := rows.Scan(
		&fc.ChangeID, &fc.SessionID, &fc.StepNumber, &fc.FieldPath,
		&oldValue, &newValue, &fc.UserID, &fc.UserName,
		&wall, &seq, &isProcessed, &conflictDetected,
	)
	if err != nil {
		return change.FieldChange{}, fmt.Errorf("failed to scan field change: %w", err)
	}

	fc.OldValue, err = unmarshalValue(oldValue)
	if err != nil {
		return change.FieldChange{}, fmt.Errorf("unmarshaling old value: %w", err)
	}
	fc.NewValue, err = unmarshalValue(newValue)
	if err != nil {
		return change.FieldChange{}, fmt.Errorf("unmarshaling new value: %w", err)
	}
	fc.Timestamp = clock.Timestamp{Wall: wall, Seq: seq}
	fc.IsProcessed = isProcessed != 0
	fc.ConflictDetected = conflictDetected != 0
	return fc, nil
}

// MarkProcessed flips is_processed for the given ids.
func (r *ChangeStore) MarkProcessed(ctx context.Context, changeIDs []string, processedAt time.Time) error {
	if len(changeIDs) == 0 {
		return nil
	}
	placeholders, args := inClause(changeIDs)
	query := fmt.Sprintf(`
		UPDATE field_change_queue
		SET is_processed = 1, processed_at = ?
		WHERE change_id IN (%s)
	`, placeholders)

	execArgs := append([]any{processedAt}, args...)
	if _, err := r.db.ExecContext(ctx, query, execArgs...); err != nil {
		return fmt.Errorf("failed to mark changes processed: %w", err)
	}
	return nil
}

// MarkConflictDetected flags the given ids as conflict_detected.
func (r *ChangeStore) MarkConflictDetected(ctx context.Context, changeIDs []string) error {
	if len(changeIDs) == 0 {
		return nil
	}
	placeholders, args := inClause(changeIDs)
	query := fmt.Sprintf(`
		UPDATE field_change_queue
		SET conflict_detected = 1
		WHERE change_id IN (%s)
	`, placeholders)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to flag conflicted changes: %w", err)
	}
	return nil
}

// History returns the full change history for (sessionID, fieldPath).
func (r *ChangeStore) History(ctx context.Context, sessionID, fieldPath string) ([]change.FieldChange, error) {
	return r.queryPendingUnfiltered(ctx, sessionID, fieldPath)
}

func (r *ChangeStore) queryPendingUnfiltered(ctx context.Context, sessionID, fieldPath string) ([]change.FieldChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT change_id, session_id, step_number, field_path,
		       old_value, new_value, user_id, user_name,
		       ts_wall, ts_seq, is_processed, conflict_detected
		FROM field_change_queue
		WHERE session_id = ? AND field_path = ?
		ORDER BY ts_wall ASC, ts_seq ASC
	`, sessionID, fieldPath)
	if err != nil {
		return nil, fmt.Errorf("failed to query change history: %w", err)
	}
	defer rows.Close()

	var changes []change.FieldChange
	for rows.Next() {
		fc, err := scanFieldChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field change rows: %w", err)
	}
	return changes, nil
}

// LatestTimestamp returns the most recent timestamp stored for
// (sessionID, step), used to seed the clock after a restart.
func (r *ChangeStore) LatestTimestamp(ctx context.Context, sessionID string, step int) (time.Time, uint64, bool, error) {
	var wall time.Time
	var seq uint64
	err := r.db.QueryRowContext(ctx, `
		SELECT ts_wall, ts_seq FROM field_change_queue
		WHERE session_id = ? AND step_number = ?
		ORDER BY ts_wall DESC, ts_seq DESC
		LIMIT 1
	`, sessionID, step).Scan(&wall, &seq)
	if err == sql.ErrNoRows {
		return time.Time{}, 0, false, nil
	}
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("failed to read latest timestamp: %w", err)
	}
	return wall, seq, true, nil
}

// Stats returns the total/processed/pending counters for a session.
func (r *ChangeStore) Stats(ctx context.Context, sessionID string) (total, processed, pending int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(CASE WHEN is_processed = 1 THEN 1 END)
		FROM field_change_queue WHERE session_id = ?
	`, sessionID).Scan(&total, &processed)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to read change stats: %w", err)
	}
	pending = total - processed
	return total, processed, pending, nil
}

// DeleteProcessedOlderThan removes processed changes older than cutoff.
func (r *ChangeStore) DeleteProcessedOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM field_change_queue WHERE is_processed = 1 AND processed_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed changes: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func marshalValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalValue(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}
