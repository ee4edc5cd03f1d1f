// Package validation checks rule drafts before they reach the registry:
// syntactic checks on the draft itself and semantic conflict checks against
// the rules already registered.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/menoncello/coding-standard-sub000/internal/interfaces"
	"github.com/menoncello/coding-standard-sub000/internal/types"
)

// RuleValidator implements interfaces.RuleValidator.
type RuleValidator struct{}

// New creates a rule validator.
func New() *RuleValidator {
	return &RuleValidator{}
}

// ValidateRule checks a candidate rule for syntactic validity and for
// semantic conflicts with the existing registry state.
func (v *RuleValidator) ValidateRule(candidate types.Rule, existing []types.Rule) interfaces.RuleValidation {
	result := interfaces.RuleValidation{Valid: true}

	addError := func(field, message string) {
		result.Valid = false
		result.Errors = append(result.Errors, interfaces.FieldIssue{Field: field, Message: message})
	}
	addWarning := func(field, message string) {
		result.Warnings = append(result.Warnings, interfaces.FieldIssue{Field: field, Message: message})
	}

	if candidate.ID == "" {
		addError("id", "rule id is required")
	}
	if candidate.Name == "" {
		addError("name", "rule name is required")
	}
	if !types.ValidSeverity(candidate.Severity) {
		addError("severity", fmt.Sprintf("severity %q is not one of error, warning, info", candidate.Severity))
	}
	if candidate.Pattern != "" {
		if _, err := regexp.Compile(candidate.Pattern); err != nil {
			addError("pattern", fmt.Sprintf("pattern does not compile: %v", err))
		}
	}
	if candidate.Pattern == "" && candidate.Message == "" && candidate.Description == "" {
		addWarning("pattern", "rule has no pattern, message, or description")
	}

	candidateName := canonicalName(candidate.Name)
	for _, other := range existing {
		if other.ID == candidate.ID {
			// Same id means an update of this rule, not a conflict.
			continue
		}
		if candidateName != "" && canonicalName(other.Name) == candidateName {
			addError("name", fmt.Sprintf("name conflicts with rule %s", other.ID))
		}
		if candidate.Pattern != "" &&
			other.Pattern == candidate.Pattern &&
			other.Category == candidate.Category {
			addWarning("pattern", fmt.Sprintf("pattern duplicates rule %s in category %s", other.ID, other.Category))
		}
	}

	for _, base := range candidate.Extends {
		if base == candidate.ID {
			addError("extends", "rule cannot extend itself")
			continue
		}
		if !ruleExists(existing, base) {
			addWarning("extends", fmt.Sprintf("extended rule %s is not registered", base))
		}
	}

	return result
}

// canonicalName normalizes a rule name for conflict comparison. Names that
// differ only in Unicode composition or letter case are the same name.
func canonicalName(name string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(name)))
}

func ruleExists(rules []types.Rule, id string) bool {
	for _, r := range rules {
		if r.ID == id {
			return true
		}
	}
	return false
}
