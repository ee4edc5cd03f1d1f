// Package interfaces defines the contracts between the hot-reload core and
// its external collaborators: the rule store that owns registry state and the
// validator that judges rule drafts. The reload orchestrator depends only on
// these abstractions, which keeps it testable with mocks.
package interfaces

import "github.com/menoncello/coding-standard-sub000/internal/types"

// RuleStore is the registry of rule definitions the reload pipeline keeps in
// sync with on-disk files. Mutations fail with an error instead of silently
// overwriting; per-rule mutual exclusion is the store's own responsibility.
type RuleStore interface {
	// GetRule returns the rule with the given id, or false if absent.
	GetRule(id string) (types.Rule, bool)

	// AddRule inserts a new rule. It fails when a rule with the same id
	// already exists.
	AddRule(rule types.Rule) error

	// UpdateRule replaces the rule with the given id. It fails when no such
	// rule exists.
	UpdateRule(id string, rule types.Rule) error

	// RemoveRule deletes the rule with the given id. Unless force is set it
	// fails when other rules extend the target.
	RemoveRule(id string, force bool) error

	// GetAllRules returns a snapshot of every rule in the store.
	GetAllRules() []types.Rule
}

// FieldIssue is a single problem a validator found in one field.
type FieldIssue struct {
	Field   string
	Message string
}

// RuleValidation is the outcome of validating one rule draft.
type RuleValidation struct {
	Valid    bool
	Errors   []FieldIssue
	Warnings []FieldIssue
}

// RuleValidator judges a candidate rule against the existing registry state.
type RuleValidator interface {
	ValidateRule(candidate types.Rule, existing []types.Rule) RuleValidation
}

// ChangeHandler receives one debounced batch of file changes. Handler errors
// are logged and isolated; they never abort sibling handlers or the watcher.
type ChangeHandler func(changes []types.FileChange) error
