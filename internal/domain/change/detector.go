package change

import (
	"context"
	"fmt"
	"time"
)

// detectConflicts implements C4: after appending fc, it re-scans the
// pending changes for fc's field path. If two or more are pending
// (including fc itself), it opens or extends the open conflict record
// and flags every member as conflict_detected. A field with a single
// pending change produces no writes.
func detectConflicts(ctx context.Context, changes ChangeStore, conflicts ConflictStore, fc FieldChange, defaultStrategy Strategy) error {
	pending, err := changes.PendingForField(ctx, fc.SessionID, fc.StepNumber, fc.FieldPath)
	if err != nil {
		return fmt.Errorf("scanning pending changes for conflicts: %w", err)
	}
	if len(pending) < 2 {
		return nil
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ChangeID)
	}

	detectedAt := time.Now()
	conflict, err := conflicts.OpenIfAbsent(ctx, fc.SessionID, fc.StepNumber, fc.FieldPath, ids, detectedAt, defaultStrategy)
	if err != nil {
		return fmt.Errorf("opening conflict record: %w", err)
	}

	if err := changes.MarkConflictDetected(ctx, conflict.ConflictingChanges); err != nil {
		return fmt.Errorf("flagging conflicted changes: %w", err)
	}
	return nil
}
