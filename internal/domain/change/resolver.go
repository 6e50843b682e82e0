package change

import "sort"

// resolution is the pure decision C5 produces for one conflict's
// membership, given a fixed strategy.
type resolution struct {
	Applied    bool
	WinnerID   string
	FinalValue any
	Strategy   Strategy
}

// sortMembers orders a conflict's member changes deterministically:
// ascending timestamp, ties broken by ascending change_id.
func sortMembers(members []FieldChange) []FieldChange {
	sorted := make([]FieldChange, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Compare(sorted[j].Timestamp) != 0 {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].ChangeID < sorted[j].ChangeID
	})
	return sorted
}

// resolve is C5: a pure function of (strategy, member set) to a
// decision. It never mutates stores; the caller persists the outcome.
func resolve(strategy Strategy, members []FieldChange) resolution {
	ordered := sortMembers(members)
	if len(ordered) == 0 {
		return resolution{}
	}

	switch strategy {
	case StrategyFifoWins:
		winner := ordered[0]
		return resolution{Applied: true, WinnerID: winner.ChangeID, FinalValue: winner.NewValue, Strategy: strategy}

	case StrategyLatestWins:
		winner := ordered[len(ordered)-1]
		return resolution{Applied: true, WinnerID: winner.ChangeID, FinalValue: winner.NewValue, Strategy: strategy}

	case StrategyMerge:
		values := make([]any, len(ordered))
		for i, m := range ordered {
			values[i] = m.NewValue
		}
		merged, ok := mergeObjectsInOrder(values)
		if !ok {
			// Degrade to latest_wins when values aren't all objects.
			winner := ordered[len(ordered)-1]
			return resolution{Applied: true, WinnerID: winner.ChangeID, FinalValue: winner.NewValue, Strategy: StrategyLatestWins}
		}
		// The last-merged (latest-timestamp) member closes out the
		// merge; it is recorded as the resolving change.
		closer := ordered[len(ordered)-1]
		return resolution{Applied: true, WinnerID: closer.ChangeID, FinalValue: merged, Strategy: strategy}

	case StrategyManual:
		return resolution{Applied: false, Strategy: strategy}

	default:
		return resolution{Applied: false, Strategy: strategy}
	}
}
