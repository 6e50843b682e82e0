package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/fifoguard/internal/domain/change"
	"github.com/stretchr/testify/require"
)

// seedChanges inserts bare field_change_queue rows so conflict_members'
// foreign key is satisfiable without dragging in the full Append path.
func seedChanges(t *testing.T, db *DB, sessionID string, step int, fieldPath string, ids ...string) {
	t.Helper()
	changes := NewChangeStore(db)
	ctx := context.Background()
	for i, id := range ids {
		require.NoError(t, changes.Append(ctx, newFieldChange(id, sessionID, step, fieldPath, uint64(i+1), "v")))
	}
}

func TestConflictStore_OpenIfAbsentCreatesAndUnions(t *testing.T) {
	db := NewTestDB(t)
	conflicts := NewConflictStore(db)
	ctx := context.Background()

	seedChanges(t, db, "s1", 1, "status", "c1", "c2", "c3")

	conflict, err := conflicts.OpenIfAbsent(ctx, "s1", 1, "status", []string{"c1", "c2"}, time.Now(), change.StrategyLatestWins)
	require.NoError(t, err)
	require.NotEmpty(t, conflict.ConflictID)
	require.ElementsMatch(t, []string{"c1", "c2"}, conflict.ConflictingChanges)

	again, err := conflicts.OpenIfAbsent(ctx, "s1", 1, "status", []string{"c1", "c2", "c3"}, time.Now(), change.StrategyLatestWins)
	require.NoError(t, err)
	require.Equal(t, conflict.ConflictID, again.ConflictID, "should reuse the existing open conflict")
	require.ElementsMatch(t, []string{"c1", "c2", "c3"}, again.ConflictingChanges)
}

func TestConflictStore_FindOpen(t *testing.T) {
	db := NewTestDB(t)
	conflicts := NewConflictStore(db)
	ctx := context.Background()

	found, err := conflicts.FindOpen(ctx, "s1", 1, "status")
	require.NoError(t, err)
	require.Nil(t, found)

	seedChanges(t, db, "s1", 1, "status", "c1", "c2")
	_, err = conflicts.OpenIfAbsent(ctx, "s1", 1, "status", []string{"c1", "c2"}, time.Now(), change.StrategyFifoWins)
	require.NoError(t, err)

	found, err = conflicts.FindOpen(ctx, "s1", 1, "status")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.False(t, found.IsResolved())
}

func TestConflictStore_CloseAndFindForChange(t *testing.T) {
	db := NewTestDB(t)
	conflicts := NewConflictStore(db)
	ctx := context.Background()

	seedChanges(t, db, "s1", 1, "status", "c1", "c2")
	conflict, err := conflicts.OpenIfAbsent(ctx, "s1", 1, "status", []string{"c1", "c2"}, time.Now(), change.StrategyFifoWins)
	require.NoError(t, err)

	require.NoError(t, conflicts.Close(ctx, conflict.ConflictID, "c1", "open", time.Now()))

	// Still resolvable by membership after closing.
	found, err := conflicts.FindForChange(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.True(t, found.IsResolved())
	require.Equal(t, "open", found.FinalValue)
	require.ElementsMatch(t, []string{"c1", "c2"}, found.ConflictingChanges)

	// FindOpen no longer sees it.
	open, err := conflicts.FindOpen(ctx, "s1", 1, "status")
	require.NoError(t, err)
	require.Nil(t, open)

	err = conflicts.Close(ctx, conflict.ConflictID, "c1", "open", time.Now())
	require.ErrorIs(t, err, change.ErrAlreadyResolved)

	err = conflicts.Close(ctx, "missing", "c1", "open", time.Now())
	require.ErrorIs(t, err, change.ErrConflictNotFound)
}

func TestConflictStore_FindForChangeUnknown(t *testing.T) {
	db := NewTestDB(t)
	conflicts := NewConflictStore(db)
	ctx := context.Background()

	found, err := conflicts.FindForChange(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestConflictStore_OpenForAndStats(t *testing.T) {
	db := NewTestDB(t)
	conflicts := NewConflictStore(db)
	ctx := context.Background()

	seedChanges(t, db, "s1", 1, "status", "a", "b")
	seedChanges(t, db, "s1", 2, "owner", "c", "d")

	c1, err := conflicts.OpenIfAbsent(ctx, "s1", 1, "status", []string{"a", "b"}, time.Now(), change.StrategyFifoWins)
	require.NoError(t, err)
	_, err = conflicts.OpenIfAbsent(ctx, "s1", 2, "owner", []string{"c", "d"}, time.Now(), change.StrategyFifoWins)
	require.NoError(t, err)

	open, err := conflicts.OpenFor(ctx, "s1", nil)
	require.NoError(t, err)
	require.Len(t, open, 2)

	step := 1
	openStep1, err := conflicts.OpenFor(ctx, "s1", &step)
	require.NoError(t, err)
	require.Len(t, openStep1, 1)

	total, resolved, err := conflicts.Stats(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, 0, resolved)

	require.NoError(t, conflicts.Close(ctx, c1.ConflictID, "a", "x", time.Now()))
	total, resolved, err = conflicts.Stats(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, 1, resolved)
}
