package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/fifoguard/internal/clock"
	"github.com/rpggio/fifoguard/internal/domain/change"
	"github.com/stretchr/testify/require"
)

func newFieldChange(id, sessionID string, step int, fieldPath string, seq uint64, newValue any) *change.FieldChange {
	return &change.FieldChange{
		ChangeID:   id,
		SessionID:  sessionID,
		StepNumber: step,
		FieldPath:  fieldPath,
		NewValue:   newValue,
		UserID:     "u1",
		UserName:   "Alice",
		Timestamp:  clock.Timestamp{Wall: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Seq: seq},
	}
}

func TestChangeStore_AppendAndPendingFor(t *testing.T) {
	db := NewTestDB(t)
	repo := NewChangeStore(db)
	ctx := context.Background()

	c1 := newFieldChange("c1", "s1", 1, "status", 1, "open")
	c2 := newFieldChange("c2", "s1", 1, "owner", 2, "bob")

	require.NoError(t, repo.Append(ctx, c1))
	require.NoError(t, repo.Append(ctx, c2))

	pending, err := repo.PendingFor(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "c1", pending[0].ChangeID)
	require.Equal(t, "open", pending[0].NewValue)
	require.Equal(t, "c2", pending[1].ChangeID)
}

func TestChangeStore_AppendDuplicate(t *testing.T) {
	db := NewTestDB(t)
	repo := NewChangeStore(db)
	ctx := context.Background()

	c1 := newFieldChange("c1", "s1", 1, "status", 1, "open")
	require.NoError(t, repo.Append(ctx, c1))

	err := repo.Append(ctx, c1)
	require.ErrorIs(t, err, change.ErrDuplicateChangeID)
}

func TestChangeStore_PendingForField(t *testing.T) {
	db := NewTestDB(t)
	repo := NewChangeStore(db)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newFieldChange("c1", "s1", 1, "status", 1, "open")))
	require.NoError(t, repo.Append(ctx, newFieldChange("c2", "s1", 1, "status", 2, "closed")))
	require.NoError(t, repo.Append(ctx, newFieldChange("c3", "s1", 1, "owner", 3, "bob")))

	pending, err := repo.PendingForField(ctx, "s1", 1, "status")
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestChangeStore_MarkProcessedAndStats(t *testing.T) {
	db := NewTestDB(t)
	repo := NewChangeStore(db)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newFieldChange("c1", "s1", 1, "status", 1, "open")))
	require.NoError(t, repo.Append(ctx, newFieldChange("c2", "s1", 1, "owner", 2, "bob")))

	require.NoError(t, repo.MarkProcessed(ctx, []string{"c1"}, time.Now()))

	total, processed, pending, err := repo.Stats(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, 1, processed)
	require.Equal(t, 1, pending)

	remaining, err := repo.PendingFor(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "c2", remaining[0].ChangeID)
}

func TestChangeStore_MarkConflictDetected(t *testing.T) {
	db := NewTestDB(t)
	repo := NewChangeStore(db)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newFieldChange("c1", "s1", 1, "status", 1, "open")))
	require.NoError(t, repo.MarkConflictDetected(ctx, []string{"c1"}))

	pending, err := repo.PendingFor(ctx, "s1", 1)
	require.NoError(t, err)
	require.True(t, pending[0].ConflictDetected)
}

func TestChangeStore_History(t *testing.T) {
	db := NewTestDB(t)
	repo := NewChangeStore(db)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newFieldChange("c1", "s1", 1, "status", 1, "open")))
	require.NoError(t, repo.Append(ctx, newFieldChange("c2", "s1", 1, "status", 2, "closed")))
	require.NoError(t, repo.MarkProcessed(ctx, []string{"c1"}, time.Now()))

	history, err := repo.History(ctx, "s1", "status")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.True(t, history[0].IsProcessed)
	require.False(t, history[1].IsProcessed)
}

func TestChangeStore_DeleteProcessedOlderThan(t *testing.T) {
	db := NewTestDB(t)
	repo := NewChangeStore(db)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newFieldChange("c1", "s1", 1, "status", 1, "open")))
	require.NoError(t, repo.MarkProcessed(ctx, []string{"c1"}, time.Now().Add(-48*time.Hour)))

	removed, err := repo.DeleteProcessedOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	total, _, _, err := repo.Stats(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, 0, total)
}

func TestChangeStore_LatestTimestamp(t *testing.T) {
	db := NewTestDB(t)
	repo := NewChangeStore(db)
	ctx := context.Background()

	_, _, found, err := repo.LatestTimestamp(ctx, "s1", 1)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, repo.Append(ctx, newFieldChange("c1", "s1", 1, "status", 1, "open")))
	require.NoError(t, repo.Append(ctx, newFieldChange("c2", "s1", 1, "status", 2, "closed")))

	_, seq, found, err := repo.LatestTimestamp(ctx, "s1", 1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(2), seq)
}
