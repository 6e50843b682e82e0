package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// DocumentStore implements change.DocumentStore for SQLite: the
// workflow_steps table stands in for the external document collection
// spec.md treats as foreign (§6), one row per (session_id, step_number).
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// GetStepData returns the step's current nested document, or an empty
// map if the step has no row yet.
func (r *DocumentStore) GetStepData(ctx context.Context, sessionID string, step int) (map[string]any, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM workflow_steps WHERE session_id = ? AND step_number = ?
	`, sessionID, step).Scan(&data)
	if err == sql.ErrNoRows {
		return make(map[string]any), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read step document: %w", err)
	}

	doc := make(map[string]any)
	if data != "" {
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("unmarshaling step document: %w", err)
		}
	}
	return doc, nil
}

// CommitStepUpdate atomically replaces the step's document, creating the
// row on first write.
func (r *DocumentStore) CommitStepUpdate(ctx context.Context, sessionID string, step int, data map[string]any, modifiedAt time.Time, modifiedBy string) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling step document: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_steps (session_id, step_number, data, last_modified, modified_by)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id, step_number)
		DO UPDATE SET data = excluded.data, last_modified = excluded.last_modified, modified_by = excluded.modified_by
	`, sessionID, step, string(encoded), modifiedAt, modifiedBy)
	if err != nil {
		return fmt.Errorf("failed to commit step document: %w", err)
	}
	return nil
}
