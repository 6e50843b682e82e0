// Package change implements the FIFO field-level change manager: a
// per-(session, step) queue of field-scoped edits, conflict detection
// across unprocessed writes to the same field path, pluggable conflict
// resolution, and a dot-path safe-apply into the owning step's nested
// document.
package change

import (
	"time"

	"github.com/rpggio/fifoguard/internal/clock"
)

// Strategy is a conflict resolution strategy.
type Strategy string

const (
	StrategyFifoWins   Strategy = "fifo_wins"
	StrategyLatestWins Strategy = "latest_wins"
	StrategyMerge      Strategy = "merge"
	StrategyManual     Strategy = "manual"
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	return string(s)
}

// Valid reports whether s is one of the closed set of strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyFifoWins, StrategyLatestWins, StrategyMerge, StrategyManual:
		return true
	default:
		return false
	}
}

// Disposition records what happened to a change during a flush.
type Disposition string

const (
	DispositionApplied      Disposition = "applied"
	DispositionShadowed     Disposition = "shadowed_by_conflict_loss"
	DispositionDeferred     Disposition = "deferred_manual"
)

// FieldChange is the unit of work: one collaborator's write to one field
// path within one session step. Immutable once enqueued except for the
// is_processed and conflict_detected flags.
type FieldChange struct {
	ChangeID         string
	SessionID        string
	StepNumber       int
	FieldPath        string
	OldValue         any
	NewValue         any
	UserID           string
	UserName         string
	Timestamp        clock.Timestamp
	IsProcessed      bool
	ConflictDetected bool
}

// FieldConflict is an open contest over a single field path, pending
// resolution at the next flush (or, for manual strategy, an explicit
// ResolveManual call).
type FieldConflict struct {
	ConflictID          string
	SessionID           string
	StepNumber          int
	FieldPath           string
	ConflictingChanges  []string
	DetectedAt          clock.Timestamp
	ResolutionStrategy  Strategy
	ResolvedAt          *time.Time
	ResolvedBy          string
	FinalValue          any
}

// IsResolved reports whether the conflict has been closed.
func (c FieldConflict) IsResolved() bool {
	return c.ResolvedAt != nil
}

// ChangeDisposition is one line of a flush's audit trail.
type ChangeDisposition struct {
	ChangeID    string
	FieldPath   string
	Disposition Disposition
	Reason      string
}

// AuditEntry is the append-only record a single Flush call produces.
type AuditEntry struct {
	SessionID    string
	StepNumber   int
	Timestamp    time.Time
	Event        string
	ChangeCount  int
	FieldCount   int
	PerChange    []ChangeDisposition
}

// Stats summarizes a session's queue and conflict state for operators.
type Stats struct {
	TotalChanges      int
	ProcessedChanges  int
	PendingChanges    int
	TotalConflicts    int
	ResolvedConflicts int
}
