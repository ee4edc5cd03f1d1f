package reload

import (
	"time"

	"github.com/menoncello/coding-standard-sub000/internal/types"
)

// FileIssue is one problem or warning tied to a specific file.
type FileIssue struct {
	File    string
	Message string
}

// ValidationResult is the outcome of validating one batch of changes.
type ValidationResult struct {
	Valid      bool
	Errors     []FileIssue
	Warnings   []FileIssue
	ValidFiles []string
}

// RuleSnapshot is the pre-mutation image of one rule, captured so a batch can
// be reversed exactly.
type RuleSnapshot struct {
	ID       string
	Original types.Rule
}

// RollbackData holds the pre-images of every mutation one reload operation
// performed. It is owned by exactly one in-flight operation, captured
// strictly before each mutation, and discarded on success or after rollback.
type RollbackData struct {
	AddedRules   []types.Rule
	UpdatedRules []RuleSnapshot
	RemovedRules []RuleSnapshot
}

// Empty reports whether no mutations have been recorded.
func (d *RollbackData) Empty() bool {
	return d == nil ||
		(len(d.AddedRules) == 0 && len(d.UpdatedRules) == 0 && len(d.RemovedRules) == 0)
}

// ReloadResult is the outcome of one ProcessChanges call. It is always
// returned, never thrown: every failure mode folds into this value.
type ReloadResult struct {
	OperationID    string
	Success        bool
	ProcessedFiles int
	Errors         []FileIssue
	Warnings       []FileIssue
	AddedRules     []string
	UpdatedRules   []string
	RemovedRules   []string

	// RollbackData is only populated when the batch failed and rollback is
	// disabled, so a caller can revert the partial effects later through
	// RollbackFailedOperations.
	RollbackData *RollbackData

	Duration time.Duration
}

// Stats is a point-in-time snapshot of orchestrator activity.
type Stats struct {
	ActiveOperations int64
	TotalOperations  uint64
	FailedOperations uint64
	RolledBack       uint64
	Rejected         uint64
	LastDuration     time.Duration
}
