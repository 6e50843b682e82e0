package mocks

import (
	"context"
	"time"

	"github.com/rpggio/fifoguard/internal/domain/change"
	"github.com/stretchr/testify/mock"
)

// ChangeStore is a mock for repository.ChangeRepository.
type ChangeStore struct {
	mock.Mock
}

func (m *ChangeStore) Append(ctx context.Context, fc *change.FieldChange) error {
	args := m.Called(ctx, fc)
	return args.Error(0)
}

func (m *ChangeStore) PendingFor(ctx context.Context, sessionID string, step int) ([]change.FieldChange, error) {
	args := m.Called(ctx, sessionID, step)
	if list, ok := args.Get(0).([]change.FieldChange); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChangeStore) PendingForField(ctx context.Context, sessionID string, step int, fieldPath string) ([]change.FieldChange, error) {
	args := m.Called(ctx, sessionID, step, fieldPath)
	if list, ok := args.Get(0).([]change.FieldChange); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChangeStore) MarkProcessed(ctx context.Context, changeIDs []string, processedAt time.Time) error {
	args := m.Called(ctx, changeIDs, processedAt)
	return args.Error(0)
}

func (m *ChangeStore) MarkConflictDetected(ctx context.Context, changeIDs []string) error {
	args := m.Called(ctx, changeIDs)
	return args.Error(0)
}

func (m *ChangeStore) History(ctx context.Context, sessionID, fieldPath string) ([]change.FieldChange, error) {
	args := m.Called(ctx, sessionID, fieldPath)
	if list, ok := args.Get(0).([]change.FieldChange); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChangeStore) LatestTimestamp(ctx context.Context, sessionID string, step int) (time.Time, uint64, bool, error) {
	args := m.Called(ctx, sessionID, step)
	wall, _ := args.Get(0).(time.Time)
	seq, _ := args.Get(1).(uint64)
	found, _ := args.Get(2).(bool)
	return wall, seq, found, args.Error(3)
}

func (m *ChangeStore) Stats(ctx context.Context, sessionID string) (int, int, int, error) {
	args := m.Called(ctx, sessionID)
	total, _ := args.Get(0).(int)
	processed, _ := args.Get(1).(int)
	pending, _ := args.Get(2).(int)
	return total, processed, pending, args.Error(3)
}

func (m *ChangeStore) DeleteProcessedOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

// ConflictStore is a mock for repository.ConflictRepository.
type ConflictStore struct {
	mock.Mock
}

func (m *ConflictStore) OpenIfAbsent(ctx context.Context, sessionID string, step int, fieldPath string, changeIDs []string, detectedAt time.Time, strategy change.Strategy) (*change.FieldConflict, error) {
	args := m.Called(ctx, sessionID, step, fieldPath, changeIDs, detectedAt, strategy)
	if c, ok := args.Get(0).(*change.FieldConflict); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ConflictStore) FindOpen(ctx context.Context, sessionID string, step int, fieldPath string) (*change.FieldConflict, error) {
	args := m.Called(ctx, sessionID, step, fieldPath)
	if c, ok := args.Get(0).(*change.FieldConflict); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ConflictStore) FindForChange(ctx context.Context, changeID string) (*change.FieldConflict, error) {
	args := m.Called(ctx, changeID)
	if c, ok := args.Get(0).(*change.FieldConflict); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ConflictStore) Close(ctx context.Context, conflictID string, resolvedBy string, finalValue any, resolvedAt time.Time) error {
	args := m.Called(ctx, conflictID, resolvedBy, finalValue, resolvedAt)
	return args.Error(0)
}

func (m *ConflictStore) OpenFor(ctx context.Context, sessionID string, step *int) ([]change.FieldConflict, error) {
	args := m.Called(ctx, sessionID, step)
	if list, ok := args.Get(0).([]change.FieldConflict); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ConflictStore) Stats(ctx context.Context, sessionID string) (int, int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Int(1), args.Error(2)
}

// DocumentStore is a mock for repository.DocumentRepository.
type DocumentStore struct {
	mock.Mock
}

func (m *DocumentStore) GetStepData(ctx context.Context, sessionID string, step int) (map[string]any, error) {
	args := m.Called(ctx, sessionID, step)
	if doc, ok := args.Get(0).(map[string]any); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentStore) CommitStepUpdate(ctx context.Context, sessionID string, step int, data map[string]any, modifiedAt time.Time, modifiedBy string) error {
	args := m.Called(ctx, sessionID, step, data, modifiedAt, modifiedBy)
	return args.Error(0)
}

// AuditStore is a mock for repository.AuditRepository.
type AuditStore struct {
	mock.Mock
}

func (m *AuditStore) Append(ctx context.Context, entry change.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *AuditStore) List(ctx context.Context, sessionID string, limit int) ([]change.AuditEntry, error) {
	args := m.Called(ctx, sessionID, limit)
	if list, ok := args.Get(0).([]change.AuditEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}
