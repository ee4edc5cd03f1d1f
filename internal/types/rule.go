// Package types holds the shared value types of the standards registry:
// rule definitions, file change events, and the severity vocabulary used
// across parsing, validation, and reload.
package types

import "time"

// Severity levels accepted for a rule.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// ValidSeverity reports whether s is one of the accepted severity levels.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// Rule is a single standard definition held by the registry.
type Rule struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Category    string    `json:"category" yaml:"category"`
	Severity    string    `json:"severity" yaml:"severity"`
	Pattern     string    `json:"pattern" yaml:"pattern"`
	Message     string    `json:"message" yaml:"message"`
	Description string    `json:"description" yaml:"description"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Extends     []string  `json:"extends,omitempty" yaml:"extends,omitempty"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
	SourcePath  string    `json:"-" yaml:"-"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// Clone returns a deep copy of the rule so callers cannot mutate shared state.
func (r Rule) Clone() Rule {
	out := r
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if r.Extends != nil {
		out.Extends = append([]string(nil), r.Extends...)
	}
	return out
}
