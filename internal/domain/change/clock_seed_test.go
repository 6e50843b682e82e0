package change_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/fifoguard/internal/clock"
	"github.com/rpggio/fifoguard/internal/domain/change"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestService_Enqueue_SeedsClockFromStorageOnFirstUse covers the
// restart-recovery contract: a freshly constructed Service (as every
// cmd/fifoctl invocation builds) must not hand out a timestamp that
// sorts before the last one already persisted for (session, step).
func TestService_Enqueue_SeedsClockFromStorageOnFirstUse(t *testing.T) {
	ctx := context.Background()
	changes, conflicts, docs, audit := newChangesAndConflictsMocks()

	future := time.Now().Add(time.Hour)
	changes.On("LatestTimestamp", ctx, "s1", 1).Return(future, uint64(5), true, nil).Once()
	changes.On("PendingForField", ctx, "s1", 1, "status").Return([]change.FieldChange{
		{ChangeID: "c1", SessionID: "s1", StepNumber: 1, FieldPath: "status", NewValue: "open"},
	}, nil)

	var stamped change.FieldChange
	changes.On("Append", ctx, mock.MatchedBy(func(fc *change.FieldChange) bool {
		stamped = *fc
		return true
	})).Return(nil)

	svc := change.NewService(changes, conflicts, docs, audit, change.StrategyLatestWins, nil)
	_, err := svc.Enqueue(ctx, change.EnqueueRequest{
		ChangeID: "c1", SessionID: "s1", StepNumber: 1, FieldPath: "status", NewValue: "open",
	})
	require.NoError(t, err)

	require.False(t, stamped.Timestamp.Before(clock.Timestamp{Wall: future, Seq: 5}),
		"a seeded clock must never issue a timestamp that sorts before the seeded high-water mark")
	changes.AssertExpectations(t)
}

// TestService_Enqueue_SeedsClockOnlyOncePerKey covers the "lazily, once
// per process" half of the contract: a second Enqueue for the same
// (session, step) must not re-query LatestTimestamp, while a different
// step under the same session gets its own independent seed lookup.
func TestService_Enqueue_SeedsClockOnlyOncePerKey(t *testing.T) {
	ctx := context.Background()
	changes, conflicts, docs, audit := newChangesAndConflictsMocks()

	changes.On("LatestTimestamp", ctx, "s1", 1).Return(time.Time{}, uint64(0), false, nil).Once()
	changes.On("LatestTimestamp", ctx, "s1", 2).Return(time.Time{}, uint64(0), false, nil).Once()
	changes.On("PendingForField", ctx, "s1", 1, "status").Return([]change.FieldChange{
		{ChangeID: "c1", SessionID: "s1", StepNumber: 1, FieldPath: "status", NewValue: "open"},
	}, nil)
	changes.On("PendingForField", ctx, "s1", 1, "other").Return([]change.FieldChange{
		{ChangeID: "c2", SessionID: "s1", StepNumber: 1, FieldPath: "other", NewValue: "open"},
	}, nil)
	changes.On("PendingForField", ctx, "s1", 2, "status").Return([]change.FieldChange{
		{ChangeID: "c3", SessionID: "s1", StepNumber: 2, FieldPath: "status", NewValue: "open"},
	}, nil)
	changes.On("Append", ctx, mock.AnythingOfType("*change.FieldChange")).Return(nil)

	svc := change.NewService(changes, conflicts, docs, audit, change.StrategyLatestWins, nil)

	_, err := svc.Enqueue(ctx, change.EnqueueRequest{ChangeID: "c1", SessionID: "s1", StepNumber: 1, FieldPath: "status", NewValue: "open"})
	require.NoError(t, err)
	_, err = svc.Enqueue(ctx, change.EnqueueRequest{ChangeID: "c2", SessionID: "s1", StepNumber: 1, FieldPath: "other", NewValue: "open"})
	require.NoError(t, err)
	_, err = svc.Enqueue(ctx, change.EnqueueRequest{ChangeID: "c3", SessionID: "s1", StepNumber: 2, FieldPath: "status", NewValue: "open"})
	require.NoError(t, err)

	changes.AssertExpectations(t)
}
