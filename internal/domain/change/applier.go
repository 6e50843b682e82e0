package change

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// applyFinalValues implements C7: merge the field→value map C6
// produced into the step's nested document using dot-path semantics,
// then commit the whole document as a single atomic update. A field
// path that is itself a dot-prefix of another field path in the same
// batch is rejected up front as path_conflict, since one change wants
// the shorter path's segment to be a leaf while the other needs to
// traverse through it as an object — this must fail the whole batch
// before either write lands, regardless of application order. The same
// check also applies against the document that already exists in
// storage, one path at a time.
func applyFinalValues(ctx context.Context, docs DocumentStore, sessionID string, step int, finalValues map[string]any, modifiedAt time.Time, modifiedBy string) error {
	if len(finalValues) == 0 {
		return nil
	}

	if err := checkIntraBatchPathConflicts(finalValues); err != nil {
		return err
	}

	doc, err := docs.GetStepData(ctx, sessionID, step)
	if err != nil {
		return fmt.Errorf("loading step document: %w", err)
	}
	if doc == nil {
		doc = make(map[string]any)
	}

	for path, value := range finalValues {
		if err := applyDotPath(doc, path, value); err != nil {
			return err
		}
	}

	if err := docs.CommitStepUpdate(ctx, sessionID, step, doc, modifiedAt, modifiedBy); err != nil {
		return fmt.Errorf("committing step document: %w", err)
	}
	return nil
}

// checkIntraBatchPathConflicts rejects a batch where one target field
// path is a strict dot-prefix of another.
func checkIntraBatchPathConflicts(finalValues map[string]any) error {
	paths := make([]string, 0, len(finalValues))
	for p := range finalValues {
		paths = append(paths, p)
	}
	for i, p1 := range paths {
		for j, p2 := range paths {
			if i == j {
				continue
			}
			if strings.HasPrefix(p2, p1+".") {
				return ErrPathConflict
			}
		}
	}
	return nil
}
