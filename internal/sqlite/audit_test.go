package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/fifoguard/internal/domain/change"
	"github.com/stretchr/testify/require"
)

func TestAuditStore_AppendAndList(t *testing.T) {
	db := NewTestDB(t)
	repo := NewAuditStore(db)
	ctx := context.Background()

	entry := change.AuditEntry{
		SessionID:   "s1",
		StepNumber:  1,
		Timestamp:   time.Now(),
		Event:       "flush",
		ChangeCount: 2,
		FieldCount:  1,
		PerChange: []change.ChangeDisposition{
			{ChangeID: "c1", FieldPath: "status", Disposition: change.DispositionApplied, Reason: "no_conflict"},
			{ChangeID: "c2", FieldPath: "status", Disposition: change.DispositionShadowed, Reason: "resolver:latest_wins"},
		},
	}
	require.NoError(t, repo.Append(ctx, entry))

	entries, err := repo.List(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "flush", entries[0].Event)
	require.Len(t, entries[0].PerChange, 2)
	require.Equal(t, change.DispositionApplied, entries[0].PerChange[0].Disposition)
}

func TestAuditStore_ListOrdersNewestFirst(t *testing.T) {
	db := NewTestDB(t)
	repo := NewAuditStore(db)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, change.AuditEntry{SessionID: "s1", StepNumber: 1, Timestamp: time.Now().Add(-time.Hour), Event: "flush"}))
	require.NoError(t, repo.Append(ctx, change.AuditEntry{SessionID: "s1", StepNumber: 2, Timestamp: time.Now(), Event: "flush"}))

	entries, err := repo.List(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 2, entries[0].StepNumber)
}

func TestAuditStore_DeleteOlderThan(t *testing.T) {
	db := NewTestDB(t)
	repo := NewAuditStore(db)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, change.AuditEntry{SessionID: "s1", StepNumber: 1, Timestamp: time.Now().Add(-48 * time.Hour), Event: "flush"}))
	require.NoError(t, repo.Append(ctx, change.AuditEntry{SessionID: "s1", StepNumber: 1, Timestamp: time.Now(), Event: "flush"}))

	removed, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	entries, err := repo.List(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
