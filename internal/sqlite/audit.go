package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/fifoguard/internal/domain/change"
)

// AuditStore implements change.AuditStore for SQLite: one append-only
// row per flush, with the per-change dispositions serialized as JSON.
type AuditStore struct {
	db *DB
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(db *DB) *AuditStore {
	return &AuditStore{db: db}
}

// Append inserts a new audit entry.
func (r *AuditStore) Append(ctx context.Context, entry change.AuditEntry) error {
	perChange, err := json.Marshal(entry.PerChange)
	if err != nil {
		return fmt.Errorf("marshaling dispositions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO fifo_processing_logs (
			session_id, step_number, occurred_at, event,
			change_count, field_count, per_change
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.SessionID, entry.StepNumber, entry.Timestamp, entry.Event,
		entry.ChangeCount, entry.FieldCount, string(perChange))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// List returns the most recent audit entries for a session, newest
// first, bounded by limit.
func (r *AuditStore) List(ctx context.Context, sessionID string, limit int) ([]change.AuditEntry, error) {
	query := `
		SELECT session_id, step_number, occurred_at, event,
		       change_count, field_count, per_change
		FROM fifo_processing_logs
		WHERE session_id = ?
		ORDER BY occurred_at DESC
	`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []change.AuditEntry
	for rows.Next() {
		var e change.AuditEntry
		var perChange string
		if err := rows.Scan(&e.SessionID, &e.StepNumber, &e.Timestamp, &e.Event, &e.ChangeCount, &e.FieldCount, &perChange); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if perChange != "" {
			if err := json.Unmarshal([]byte(perChange), &e.PerChange); err != nil {
				return nil, fmt.Errorf("unmarshaling dispositions: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return entries, nil
}

// DeleteOlderThan removes audit entries older than cutoff.
func (r *AuditStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM fifo_processing_logs WHERE occurred_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}
