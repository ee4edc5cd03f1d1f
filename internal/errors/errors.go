// Package errors defines the structured error taxonomy of the hot-reload
// pipeline. Every failure surfaced by the watcher, parser, validator, or
// orchestrator is a StandardsError with a type, a stable code, and optional
// file context so callers can itemize problems per file.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeAdmission  ErrorType = "admission"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeApply      ErrorType = "apply"
	ErrorTypeRollback   ErrorType = "rollback"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeReloadDisabled   = "ERR_RELOAD_DISABLED"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeAdmissionFull    = "ERR_ADMISSION_FULL"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeUnknownFormat    = "ERR_UNKNOWN_FORMAT"
	ErrCodeParseFailed      = "ERR_PARSE_FAILED"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
	ErrCodeRuleConflict     = "ERR_RULE_CONFLICT"
	ErrCodeRuleNotFound     = "ERR_RULE_NOT_FOUND"
	ErrCodeRuleReferenced   = "ERR_RULE_REFERENCED"
	ErrCodeApplyFailed      = "ERR_APPLY_FAILED"
	ErrCodeRollbackFailed   = "ERR_ROLLBACK_FAILED"
	ErrCodeTimeout          = "ERR_OPERATION_TIMEOUT"
	ErrCodeWatcherState     = "ERR_WATCHER_STATE"
	ErrCodeInternalError    = "ERR_INTERNAL"
)

// StandardsError is a structured error with pipeline context.
type StandardsError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	FilePath    string
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *StandardsError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *StandardsError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by type and code.
func (e *StandardsError) Is(target error) bool {
	var t *StandardsError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithFile attaches the file the error refers to.
func (e *StandardsError) WithFile(path string) *StandardsError {
	e.FilePath = path
	return e
}

// WithContext adds context information to the error.
func (e *StandardsError) WithContext(key string, value interface{}) *StandardsError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *StandardsError {
	return &StandardsError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewAdmissionError creates an admission error. Admission errors are
// retryable: the caller may resubmit once an operation slot frees up.
func NewAdmissionError(message string) *StandardsError {
	return &StandardsError{
		Type:        ErrorTypeAdmission,
		Code:        ErrCodeAdmissionFull,
		Message:     message,
		Recoverable: true,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *StandardsError {
	return &StandardsError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewApplyError creates an apply error for a registry mutation that failed.
func NewApplyError(code, message string, cause error) *StandardsError {
	return &StandardsError{
		Type:        ErrorTypeApply,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewRollbackError creates a rollback error. Rollback errors are logged,
// never propagated, so the original failure stays visible.
func NewRollbackError(message string, cause error) *StandardsError {
	return &StandardsError{
		Type:        ErrorTypeRollback,
		Code:        ErrCodeRollbackFailed,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *StandardsError {
	return &StandardsError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *StandardsError {
	return &StandardsError{
		Type:        ErrorTypeInternal,
		Code:        ErrCodeInternalError,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var se *StandardsError
	if errors.As(err, &se) {
		return se.Recoverable
	}
	return false
}

// IsAdmissionError checks whether an error is an admission rejection.
func IsAdmissionError(err error) bool {
	var se *StandardsError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeAdmission
	}
	return false
}

// IsValidationError checks whether an error is validation-related.
func IsValidationError(err error) bool {
	var se *StandardsError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeValidation
	}
	return false
}

// ErrRuleNotFound creates a rule-not-found error.
func ErrRuleNotFound(id string) *StandardsError {
	return NewValidationError(ErrCodeRuleNotFound, "rule not found: "+id)
}

// ErrRuleConflict creates a duplicate-rule conflict error.
func ErrRuleConflict(id string) *StandardsError {
	return NewValidationError(ErrCodeRuleConflict, "rule already exists: "+id)
}

// ErrRuleReferenced creates an error for removing a rule other rules extend.
func ErrRuleReferenced(id string, referrers []string) *StandardsError {
	return NewValidationError(
		ErrCodeRuleReferenced,
		fmt.Sprintf("rule %s is extended by %s", id, strings.Join(referrers, ", ")),
	)
}

// ErrFileNotFound creates an error for a change referring to a missing file.
func ErrFileNotFound(path string, cause error) *StandardsError {
	return NewIOError(ErrCodeFileNotFound, "file does not exist", cause).WithFile(path)
}
