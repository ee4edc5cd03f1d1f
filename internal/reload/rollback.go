package reload

import (
	"context"

	stderrors "github.com/menoncello/coding-standard-sub000/internal/errors"
)

// RollbackFailedOperations reverses every mutation recorded in data:
// added rules are removed, updated rules restored to their originals, and
// removed rules re-added. Each step is attempted independently and a failed
// step is logged, never returned, so a partial rollback failure cannot mask
// the error that triggered it. If rollback itself partially fails the
// registry may match neither the pre- nor the post-batch state; that gap is
// a known limitation of best-effort reversal.
//
// The method is exported so a caller holding the RollbackData of a batch
// that ran with rollback disabled can revert it later. It returns the number
// of steps that could not be reversed.
func (o *Orchestrator) RollbackFailedOperations(ctx context.Context, data *RollbackData) int {
	if data.Empty() {
		return 0
	}

	failed := 0

	for _, rule := range data.AddedRules {
		if err := o.store.RemoveRule(rule.ID, true); err != nil {
			failed++
			o.logger.Error(ctx, stderrors.NewRollbackError("removing added rule "+rule.ID, err),
				"rollback step failed", "rule", rule.ID)
		}
	}

	for _, snapshot := range data.UpdatedRules {
		if err := o.store.UpdateRule(snapshot.ID, snapshot.Original); err != nil {
			failed++
			o.logger.Error(ctx, stderrors.NewRollbackError("restoring rule "+snapshot.ID, err),
				"rollback step failed", "rule", snapshot.ID)
		}
	}

	for _, snapshot := range data.RemovedRules {
		if err := o.store.AddRule(snapshot.Original); err != nil {
			failed++
			o.logger.Error(ctx, stderrors.NewRollbackError("re-adding rule "+snapshot.ID, err),
				"rollback step failed", "rule", snapshot.ID)
		}
	}

	// Consumed: the data must not be replayed against a registry that has
	// since moved on.
	data.AddedRules = nil
	data.UpdatedRules = nil
	data.RemovedRules = nil

	return failed
}
