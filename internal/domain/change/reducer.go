package change

import (
	"context"
	"fmt"
	"time"
)

// reduceResult is C6's output: the final field→value map plus enough
// bookkeeping for the facade to mark changes processed and write an
// audit entry.
type reduceResult struct {
	FinalValues         map[string]any
	ToProcess           []string
	Dispositions        []ChangeDisposition
	ConflictsUnresolved int
}

// reduceFifo implements C6: drain all pending changes for (sessionID,
// step) in arrival order, consult the resolver once per conflict, and
// emit the final field→value map plus processing dispositions. It does
// not mark anything processed or touch the document store; the facade
// does that once this succeeds.
func reduceFifo(ctx context.Context, changes ChangeStore, conflicts ConflictStore, sessionID string, step int) (reduceResult, error) {
	pending, err := changes.PendingFor(ctx, sessionID, step)
	if err != nil {
		return reduceResult{}, fmt.Errorf("reading pending changes: %w", err)
	}
	pending = sortMembers(pending)

	byID := make(map[string]FieldChange, len(pending))
	for _, p := range pending {
		byID[p.ChangeID] = p
	}

	result := reduceResult{
		FinalValues: make(map[string]any),
	}

	decidedByConflict := make(map[string]resolution)
	now := time.Now()

	for _, ch := range pending {
		if !ch.ConflictDetected {
			result.FinalValues[ch.FieldPath] = ch.NewValue
			result.ToProcess = append(result.ToProcess, ch.ChangeID)
			result.Dispositions = append(result.Dispositions, ChangeDisposition{
				ChangeID: ch.ChangeID, FieldPath: ch.FieldPath,
				Disposition: DispositionApplied, Reason: "no_conflict",
			})
			continue
		}

		conflict, err := conflicts.FindForChange(ctx, ch.ChangeID)
		if err != nil {
			return reduceResult{}, fmt.Errorf("loading conflict for change %s: %w", ch.ChangeID, err)
		}
		if conflict == nil {
			// Invariant violation: a change flagged conflict_detected
			// must belong to a conflict record. Refuse rather than
			// guess at a repair (§7 recoverability boundary).
			return reduceResult{}, fmt.Errorf("%w: change %s flagged conflicted but has no conflict record", ErrUnavailable, ch.ChangeID)
		}

		dec, cached := decidedByConflict[conflict.ConflictID]
		if !cached {
			if conflict.IsResolved() {
				dec = resolution{Applied: true, FinalValue: conflict.FinalValue, Strategy: conflict.ResolutionStrategy}
			} else {
				members := make([]FieldChange, 0, len(conflict.ConflictingChanges))
				for _, id := range conflict.ConflictingChanges {
					if m, ok := byID[id]; ok {
						members = append(members, m)
					}
				}
				dec = resolve(conflict.ResolutionStrategy, members)
				if dec.Applied {
					if err := conflicts.Close(ctx, conflict.ConflictID, dec.WinnerID, dec.FinalValue, now); err != nil {
						return reduceResult{}, fmt.Errorf("closing conflict %s: %w", conflict.ConflictID, err)
					}
				} else {
					result.ConflictsUnresolved++
				}
			}
			decidedByConflict[conflict.ConflictID] = dec
		}

		if !dec.Applied {
			result.Dispositions = append(result.Dispositions, ChangeDisposition{
				ChangeID: ch.ChangeID, FieldPath: ch.FieldPath,
				Disposition: DispositionDeferred, Reason: "manual_resolution_pending",
			})
			continue
		}

		result.FinalValues[ch.FieldPath] = dec.FinalValue
		result.ToProcess = append(result.ToProcess, ch.ChangeID)
		if dec.WinnerID != "" && ch.ChangeID == dec.WinnerID {
			result.Dispositions = append(result.Dispositions, ChangeDisposition{
				ChangeID: ch.ChangeID, FieldPath: ch.FieldPath,
				Disposition: DispositionApplied, Reason: "resolver:" + string(dec.Strategy),
			})
		} else {
			result.Dispositions = append(result.Dispositions, ChangeDisposition{
				ChangeID: ch.ChangeID, FieldPath: ch.FieldPath,
				Disposition: DispositionShadowed, Reason: "resolver:" + string(dec.Strategy),
			})
		}
	}

	return result, nil
}
