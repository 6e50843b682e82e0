package change

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/fifoguard/internal/clock"
)

// Service is the FIFO field-level change manager facade (C8): Enqueue,
// FlushStep, ResolveManual, Stats, History, and Cleanup, all serialized
// per session so that a flush never races an enqueue for the same
// session.
type Service struct {
	changes    ChangeStore
	conflicts  ConflictStore
	docs       DocumentStore
	audit      AuditStore
	clock      *clock.Clock
	locks      *sessionLocker
	defaultStrategy Strategy
	logger     *slog.Logger

	seeded sync.Map // stepKey -> struct{}; tracks which (session,step) clocks have been seeded from storage this process
}

// NewService wires the four store ports, a default conflict resolution
// strategy applied to newly detected conflicts, and a logger.
func NewService(changes ChangeStore, conflicts ConflictStore, docs DocumentStore, audit AuditStore, defaultStrategy Strategy, logger *slog.Logger) *Service {
	if !defaultStrategy.Valid() {
		defaultStrategy = StrategyLatestWins
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		changes:         changes,
		conflicts:       conflicts,
		docs:            docs,
		audit:           audit,
		clock:           clock.New(),
		locks:           newSessionLocker(),
		defaultStrategy: defaultStrategy,
		logger:          logger,
	}
}

// Enqueue is the facade's (C8) enqueue operation: stamp req with a
// monotonic timestamp scoped to (session, step), persist it through the
// ChangeStore (C2), and run conflict detection (C4) against
// every other still-pending change on the same field path. A duplicate
// ChangeID is treated as a safe no-op retry rather than an error.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	if err := ValidateFieldPath(req.FieldPath); err != nil {
		return EnqueueResult{}, err
	}
	if req.ChangeID == "" {
		req.ChangeID = uuid.NewString()
	}

	unlock := s.locks.Lock(req.SessionID)
	defer unlock()

	key := stepKey(req.SessionID, req.StepNumber)
	s.seedClockOnce(ctx, req.SessionID, req.StepNumber, key)
	ts := s.clock.Next(key)

	fc := &FieldChange{
		ChangeID:   req.ChangeID,
		SessionID:  req.SessionID,
		StepNumber: req.StepNumber,
		FieldPath:  req.FieldPath,
		OldValue:   req.OldValue,
		NewValue:   req.NewValue,
		UserID:     req.UserID,
		UserName:   req.UserName,
		Timestamp:  ts,
	}

	if err := s.changes.Append(ctx, fc); err != nil {
		if err == ErrDuplicateChangeID {
			s.logger.DebugContext(ctx, "enqueue: duplicate change id treated as no-op",
				"session_id", req.SessionID, "change_id", req.ChangeID)
			return EnqueueResult{ChangeID: req.ChangeID, Accepted: true, Reason: "duplicate"}, nil
		}
		return EnqueueResult{}, fmt.Errorf("appending change: %w", err)
	}

	if err := detectConflicts(ctx, s.changes, s.conflicts, *fc, s.defaultStrategy); err != nil {
		return EnqueueResult{}, fmt.Errorf("detecting conflicts: %w", err)
	}

	s.logger.InfoContext(ctx, "change enqueued",
		"session_id", req.SessionID, "step", req.StepNumber, "field_path", req.FieldPath, "change_id", req.ChangeID)
	return EnqueueResult{ChangeID: req.ChangeID, Accepted: true}, nil
}

// FlushStep implements C6+C7+C9: reduce all pending changes for
// (sessionID, step) to a final field→value map, safe-merge it into the
// step document, mark every drained change processed (winners and
// losers of resolved conflicts alike), and append an audit entry. Fields still deadlocked on an unresolved manual conflict
// are excluded from the document update and left pending.
func (s *Service) FlushStep(ctx context.Context, sessionID string, step int, opts FlushOptions) (FlushResult, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	reduced, err := reduceFifo(ctx, s.changes, s.conflicts, sessionID, step)
	if err != nil {
		return FlushResult{}, fmt.Errorf("reducing pending changes: %w", err)
	}

	now := time.Now()
	if len(reduced.FinalValues) > 0 {
		if err := applyFinalValues(ctx, s.docs, sessionID, step, reduced.FinalValues, now, "fifoguard"); err != nil {
			return FlushResult{}, fmt.Errorf("applying final values: %w", err)
		}
	}

	if len(reduced.ToProcess) > 0 {
		if err := s.changes.MarkProcessed(ctx, reduced.ToProcess, now); err != nil {
			return FlushResult{}, fmt.Errorf("marking changes processed: %w", err)
		}
	}

	if s.audit != nil && len(reduced.Dispositions) > 0 {
		entry := AuditEntry{
			SessionID:   sessionID,
			StepNumber:  step,
			Timestamp:   now,
			Event:       "flush",
			ChangeCount: len(reduced.Dispositions),
			FieldCount:  len(reduced.FinalValues),
			PerChange:   reduced.Dispositions,
		}
		if err := s.audit.Append(ctx, entry); err != nil {
			// Audit is observability, not a correctness boundary: a
			// failed append must not roll back an already-committed
			// document update.
			s.logger.ErrorContext(ctx, "audit append failed", "session_id", sessionID, "step", step, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "step flushed",
		"session_id", sessionID, "step", step,
		"changes_processed", len(reduced.ToProcess), "fields_applied", len(reduced.FinalValues),
		"conflicts_unresolved", reduced.ConflictsUnresolved)

	return FlushResult{
		ChangesQueued:       len(reduced.Dispositions),
		ChangesApplied:      len(reduced.ToProcess),
		ConflictsUnresolved: reduced.ConflictsUnresolved,
		FinalValues:         reduced.FinalValues,
	}, nil
}

// ResolveManual implements the manual-strategy escape hatch: an operator
// supplies the winning value directly (or, if FinalValue is nil, the
// facade re-resolves using req.Strategy against the conflict's current
// membership). The conflict closes but its member changes are not
// marked processed here — they remain pending until the next FlushStep
// picks up the now-resolved conflict via FindForChange.
func (s *Service) ResolveManual(ctx context.Context, req ResolveManualRequest) (ResolveManualResult, error) {
	unlock := s.locks.Lock(req.SessionID)
	defer unlock()

	conflict, err := s.conflicts.FindOpen(ctx, req.SessionID, req.StepNumber, req.FieldPath)
	if err != nil {
		return ResolveManualResult{}, fmt.Errorf("loading conflict: %w", err)
	}
	if conflict == nil {
		return ResolveManualResult{}, ErrConflictNotFound
	}
	if conflict.IsResolved() {
		return ResolveManualResult{}, ErrAlreadyResolved
	}

	strategy := req.Strategy
	if !strategy.Valid() {
		return ResolveManualResult{}, ErrInvalidStrategy
	}

	var finalValue any
	var winnerID string

	if req.FinalValue != nil {
		finalValue = *req.FinalValue
	} else {
		members, err := s.changes.PendingForField(ctx, req.SessionID, req.StepNumber, req.FieldPath)
		if err != nil {
			return ResolveManualResult{}, fmt.Errorf("loading conflict members: %w", err)
		}
		dec := resolve(strategy, members)
		if !dec.Applied {
			return ResolveManualResult{}, fmt.Errorf("%w: strategy %s did not produce a decision", ErrInvalidStrategy, strategy)
		}
		finalValue = dec.FinalValue
		winnerID = dec.WinnerID
	}

	resolvedBy := req.ResolvedBy
	if resolvedBy == "" {
		resolvedBy = winnerID
	}

	if err := s.conflicts.Close(ctx, conflict.ConflictID, resolvedBy, finalValue, time.Now()); err != nil {
		return ResolveManualResult{}, fmt.Errorf("closing conflict: %w", err)
	}

	s.logger.InfoContext(ctx, "conflict resolved manually",
		"session_id", req.SessionID, "step", req.StepNumber, "field_path", req.FieldPath, "strategy", strategy)
	return ResolveManualResult{Resolved: true}, nil
}

// Stats reports queue and conflict counters for a session.
func (s *Service) Stats(ctx context.Context, sessionID string) (Stats, error) {
	total, processed, pending, err := s.changes.Stats(ctx, sessionID)
	if err != nil {
		return Stats{}, fmt.Errorf("reading change stats: %w", err)
	}
	totalConflicts, resolvedConflicts, err := s.conflicts.Stats(ctx, sessionID)
	if err != nil {
		return Stats{}, fmt.Errorf("reading conflict stats: %w", err)
	}
	return Stats{
		TotalChanges:      total,
		ProcessedChanges:  processed,
		PendingChanges:    pending,
		TotalConflicts:    totalConflicts,
		ResolvedConflicts: resolvedConflicts,
	}, nil
}

// GetConflicts lists open conflicts for a session, optionally restricted
// to one step (step == nil means every step).
func (s *Service) GetConflicts(ctx context.Context, sessionID string, step *int) ([]FieldConflict, error) {
	conflicts, err := s.conflicts.OpenFor(ctx, sessionID, step)
	if err != nil {
		return nil, fmt.Errorf("reading open conflicts: %w", err)
	}
	return conflicts, nil
}

// AuditLog returns the most recent flush audit entries for a session,
// newest first, for operator inspection (the original's processing_log
// convenience view, formalized onto AuditEntry.PerChange).
func (s *Service) AuditLog(ctx context.Context, sessionID string, limit int) ([]AuditEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	entries, err := s.audit.List(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	return entries, nil
}

// History returns the full change history for a single field path,
// processed and unprocessed, in timestamp order.
func (s *Service) History(ctx context.Context, sessionID, fieldPath string) ([]FieldChange, error) {
	history, err := s.changes.History(ctx, sessionID, fieldPath)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return history, nil
}

// Cleanup deletes processed changes and audit entries older than
// retentionDays, returning the count of each removed.
func (s *Service) Cleanup(ctx context.Context, retentionDays int) (changesRemoved, auditRemoved int, err error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	changesRemoved, err = s.changes.DeleteProcessedOlderThan(ctx, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("cleaning up processed changes: %w", err)
	}

	if s.audit != nil {
		auditRemoved, err = s.audit.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return changesRemoved, 0, fmt.Errorf("cleaning up audit entries: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "cleanup completed", "changes_removed", changesRemoved, "audit_removed", auditRemoved, "retention_days", retentionDays)
	return changesRemoved, auditRemoved, nil
}

// stepKey derives the clock's per-step ordering key.
func stepKey(sessionID string, step int) string {
	return fmt.Sprintf("%s/%d", sessionID, step)
}

// seedClockOnce implements the restart-recovery half of C1: the first
// time this process issues a timestamp for key, it seeds the clock from
// the last persisted timestamp for (sessionID, step) so a freshly
// constructed Service (every cmd/fifoctl invocation builds one) resumes
// strictly after history instead of risking a wall-clock value that
// sorts earlier than an already-stored change. Seeding once per key,
// lazily, avoids a full-table scan on every NewService call; it is safe
// under concurrent sessions because each session's Enqueue calls are
// already serialized by s.locks, and sync.Map's LoadOrStore makes the
// "have we seeded this key yet" check itself race-free.
func (s *Service) seedClockOnce(ctx context.Context, sessionID string, step int, key string) {
	if _, alreadySeeded := s.seeded.LoadOrStore(key, struct{}{}); alreadySeeded {
		return
	}
	wall, seq, found, err := s.changes.LatestTimestamp(ctx, sessionID, step)
	if err != nil {
		s.logger.WarnContext(ctx, "clock seed lookup failed; proceeding unseeded",
			"session_id", sessionID, "step", step, "error", err)
		return
	}
	if found {
		s.clock.Seed(key, clock.Timestamp{Wall: wall, Seq: seq})
	}
}
