// Package reload applies batches of file changes to the rule registry:
// admission-controlled, validated, and atomic. A batch either fully commits
// or, with rollback enabled, fully reverts; the registry never observably
// reflects a strict subset of a failed batch.
package reload

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	stderrors "github.com/menoncello/coding-standard-sub000/internal/errors"
	"github.com/menoncello/coding-standard-sub000/internal/interfaces"
	"github.com/menoncello/coding-standard-sub000/internal/logging"
	"github.com/menoncello/coding-standard-sub000/internal/parser"
	"github.com/menoncello/coding-standard-sub000/internal/types"
)

// Orchestrator coordinates validation, apply, and rollback for batches of
// file changes. All dependencies are injected; the orchestrator holds no
// global state.
type Orchestrator struct {
	config    Config
	store     interfaces.RuleStore
	validator interfaces.RuleValidator
	parser    *parser.Parser
	logger    logging.Logger
	sem       *semaphore.Weighted

	mu           sync.Mutex
	lastDuration time.Duration

	active     atomic.Int64
	totalOps   atomic.Uint64
	failedOps  atomic.Uint64
	rolledBack atomic.Uint64
	rejected   atomic.Uint64
}

// New creates a reload orchestrator.
func New(config Config, store interfaces.RuleStore, validator interfaces.RuleValidator, logger logging.Logger) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if config.OnConflict == "" {
		config.OnConflict = ConflictOverwrite
	}

	return &Orchestrator{
		config:    config,
		store:     store,
		validator: validator,
		parser:    parser.New(),
		logger:    logger.WithComponent("reload"),
		sem:       semaphore.NewWeighted(int64(config.MaxConcurrentOperations)),
	}, nil
}

// ProcessChanges validates and applies one batch of file changes. It always
// returns a result and never panics outward: unexpected internal failures
// are converted into a generic failure result, because the triggering event
// source has no synchronous caller able to catch anything.
func (o *Orchestrator) ProcessChanges(ctx context.Context, changes []types.FileChange) (result ReloadResult) {
	start := time.Now()
	result.OperationID = uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			err := stderrors.NewInternalError(fmt.Sprintf("unexpected failure: %v", r), nil)
			o.logger.Error(ctx, err, "reload operation panicked", "operation", result.OperationID)
			result.Success = false
			result.Errors = append(result.Errors, FileIssue{Message: err.Error()})
		}
		result.Duration = time.Since(start)
		o.mu.Lock()
		o.lastDuration = result.Duration
		o.mu.Unlock()
	}()

	if !o.config.Enabled {
		result.Errors = append(result.Errors, FileIssue{
			Message: stderrors.NewConfigError(stderrors.ErrCodeReloadDisabled, "hot reload is disabled").Error(),
		})
		return result
	}

	// Admission control: reject outright when the cap is reached. The
	// check-and-increment is atomic; callers retry, nothing is queued.
	if !o.sem.TryAcquire(1) {
		o.rejected.Add(1)
		result.Errors = append(result.Errors, FileIssue{
			Message: stderrors.NewAdmissionError("concurrent operation limit reached, retry later").Error(),
		})
		return result
	}
	o.active.Add(1)
	o.totalOps.Add(1)
	defer func() {
		o.active.Add(-1)
		o.sem.Release(1)
		if !result.Success {
			o.failedOps.Add(1)
		}
	}()

	opCtx := ctx
	if o.config.OperationTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, o.config.OperationTimeout)
		defer cancel()
	}

	o.logger.Info(opCtx, "processing changes", "operation", result.OperationID, "count", len(changes))

	if o.config.ValidateBeforeUpdate {
		validation, drafts := o.validate(opCtx, changes)
		result.Warnings = append(result.Warnings, validation.Warnings...)
		if !validation.Valid {
			result.Errors = append(result.Errors, validation.Errors...)
			o.logger.Warn(opCtx, nil, "validation gate rejected batch",
				"operation", result.OperationID, "errors", len(validation.Errors))
			return result
		}
		result.Success = o.apply(opCtx, filterValid(changes, validation.ValidFiles), drafts, &result)
		return result
	}

	// Validation skipped by configuration: every change reaches the apply
	// loop and the registry's own checks are the backstop.
	result.Success = o.apply(opCtx, changes, nil, &result)
	return result
}

// filterValid keeps the changes whose paths passed validation, preserving
// batch order.
func filterValid(changes []types.FileChange, validFiles []string) []types.FileChange {
	valid := make(map[string]struct{}, len(validFiles))
	for _, f := range validFiles {
		valid[f] = struct{}{}
	}
	out := make([]types.FileChange, 0, len(changes))
	for _, c := range changes {
		if _, ok := valid[c.Path]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ValidateChanges runs the validation phase standalone, without applying
// anything. Deletions are auto-valid; creations and updates are read,
// parsed, normalized, and checked against the existing registry state.
func (o *Orchestrator) ValidateChanges(ctx context.Context, changes []types.FileChange) ValidationResult {
	result, _ := o.validate(ctx, changes)
	return result
}

// validate also returns the parsed drafts so the apply phase does not read
// and decode each file twice.
func (o *Orchestrator) validate(ctx context.Context, changes []types.FileChange) (ValidationResult, map[string]types.Rule) {
	result := ValidationResult{Valid: true}
	drafts := make(map[string]types.Rule, len(changes))
	existing := o.store.GetAllRules()

	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, FileIssue{
				File:    change.Path,
				Message: stderrors.NewConfigError(stderrors.ErrCodeTimeout, "validation aborted: "+err.Error()).Error(),
			})
			return result, drafts
		}

		if change.Type == types.ChangeDelete {
			result.ValidFiles = append(result.ValidFiles, change.Path)
			continue
		}

		draft, err := o.parser.ParseFile(change.Path)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, FileIssue{File: change.Path, Message: err.Error()})
			continue
		}

		verdict := o.validator.ValidateRule(draft, existing)
		for _, issue := range verdict.Warnings {
			result.Warnings = append(result.Warnings, FileIssue{
				File:    change.Path,
				Message: issue.Field + ": " + issue.Message,
			})
		}
		if !verdict.Valid {
			result.Valid = false
			for _, issue := range verdict.Errors {
				result.Errors = append(result.Errors, FileIssue{
					File:    change.Path,
					Message: issue.Field + ": " + issue.Message,
				})
			}
			continue
		}

		drafts[change.Path] = draft
		result.ValidFiles = append(result.ValidFiles, change.Path)
	}

	return result, drafts
}

// apply pushes every valid change into the registry, capturing pre-images
// before each mutation. Per-file failures are recorded and the loop
// continues; the commit-or-rollback decision happens once at the end.
// Returns true when the batch committed cleanly.
func (o *Orchestrator) apply(ctx context.Context, changes []types.FileChange, drafts map[string]types.Rule, result *ReloadResult) bool {
	rollback := &RollbackData{}

	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			// Timeout expiry funnels into the same failure path as any
			// other apply error.
			result.Errors = append(result.Errors, FileIssue{
				File:    change.Path,
				Message: stderrors.NewConfigError(stderrors.ErrCodeTimeout, "operation timed out").Error(),
			})
			break
		}

		if err := o.applyOne(change, drafts, result, rollback); err != nil {
			result.Errors = append(result.Errors, FileIssue{File: change.Path, Message: err.Error()})
		}
		result.ProcessedFiles++
	}

	if len(result.Errors) == 0 {
		return true
	}

	if o.config.EnableRollback {
		o.rolledBack.Add(1)
		o.logger.Warn(ctx, nil, "rolling back batch",
			"operation", result.OperationID, "errors", len(result.Errors))
		o.RollbackFailedOperations(ctx, rollback)
		// After rollback the externally visible effect is "nothing happened".
		result.AddedRules = nil
		result.UpdatedRules = nil
		result.RemovedRules = nil
		return false
	}

	// Rollback disabled: the applied subset remains, a weaker guarantee
	// chosen by configuration. Hand the pre-images to the caller.
	if !rollback.Empty() {
		result.RollbackData = rollback
	}
	return false
}

// applyOne applies a single change, snapshotting the pre-image strictly
// before the corresponding mutation.
func (o *Orchestrator) applyOne(change types.FileChange, drafts map[string]types.Rule, result *ReloadResult, rollback *RollbackData) error {
	if change.Type == types.ChangeDelete {
		id := parser.RuleIDForPath(change.Path)
		original, ok := o.store.GetRule(id)
		if !ok {
			// Nothing to delete; the file is still counted as processed.
			return nil
		}
		rollback.RemovedRules = append(rollback.RemovedRules, RuleSnapshot{ID: id, Original: original})
		if err := o.store.RemoveRule(id, true); err != nil {
			rollback.RemovedRules = rollback.RemovedRules[:len(rollback.RemovedRules)-1]
			return stderrors.NewApplyError(stderrors.ErrCodeApplyFailed, "removing rule "+id, err)
		}
		result.RemovedRules = append(result.RemovedRules, id)
		return nil
	}

	draft, ok := drafts[change.Path]
	if !ok {
		parsed, err := o.parser.ParseFile(change.Path)
		if err != nil {
			return err
		}
		draft = parsed
	}

	original, exists := o.store.GetRule(draft.ID)
	if !exists {
		rollback.AddedRules = append(rollback.AddedRules, draft)
		if err := o.store.AddRule(draft); err != nil {
			rollback.AddedRules = rollback.AddedRules[:len(rollback.AddedRules)-1]
			return stderrors.NewApplyError(stderrors.ErrCodeApplyFailed, "adding rule "+draft.ID, err)
		}
		result.AddedRules = append(result.AddedRules, draft.ID)
		return nil
	}

	if change.Type == types.ChangeCreate && o.config.OnConflict == ConflictFail {
		return stderrors.ErrRuleConflict(draft.ID).WithFile(change.Path)
	}
	if change.Type == types.ChangeCreate && o.config.OnConflict == ConflictMerge {
		draft = mergeRules(original, draft)
	}

	rollback.UpdatedRules = append(rollback.UpdatedRules, RuleSnapshot{ID: draft.ID, Original: original})
	if err := o.store.UpdateRule(draft.ID, draft); err != nil {
		rollback.UpdatedRules = rollback.UpdatedRules[:len(rollback.UpdatedRules)-1]
		return stderrors.NewApplyError(stderrors.ErrCodeApplyFailed, "updating rule "+draft.ID, err)
	}
	result.UpdatedRules = append(result.UpdatedRules, draft.ID)
	return nil
}

// mergeRules fills fields the incoming definition left empty from the
// existing rule.
func mergeRules(existing, incoming types.Rule) types.Rule {
	merged := incoming
	if merged.Name == "" || merged.Name == merged.ID {
		merged.Name = existing.Name
	}
	if merged.Pattern == "" {
		merged.Pattern = existing.Pattern
	}
	if merged.Message == "" {
		merged.Message = existing.Message
	}
	if merged.Description == "" {
		merged.Description = existing.Description
	}
	if len(merged.Tags) == 0 {
		merged.Tags = existing.Tags
	}
	if len(merged.Extends) == 0 {
		merged.Extends = existing.Extends
	}
	return merged
}

// GetStats returns a snapshot of orchestrator counters.
func (o *Orchestrator) GetStats() Stats {
	o.mu.Lock()
	last := o.lastDuration
	o.mu.Unlock()

	return Stats{
		ActiveOperations: o.active.Load(),
		TotalOperations:  o.totalOps.Load(),
		FailedOperations: o.failedOps.Load(),
		RolledBack:       o.rolledBack.Load(),
		Rejected:         o.rejected.Load(),
		LastDuration:     last,
	}
}
