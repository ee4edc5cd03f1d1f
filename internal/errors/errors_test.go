package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NewValidationError(ErrCodeParseFailed, "bad syntax").WithFile("rules/x.yaml")
	assert.Equal(t, "[ERR_PARSE_FAILED] rules/x.yaml bad syntax", err.Error())

	cause := fmt.Errorf("boom")
	wrapped := NewApplyError(ErrCodeApplyFailed, "adding rule", cause)
	assert.Contains(t, wrapped.Error(), "adding rule: boom")
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NewIOError(ErrCodeFileNotFound, "reading", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, cause)
}

func TestIsMatchesTypeAndCode(t *testing.T) {
	err := ErrRuleNotFound("r1")
	assert.ErrorIs(t, err, ErrRuleNotFound("other"))
	assert.NotErrorIs(t, err, ErrRuleConflict("r1"))
}

func TestErrorAs(t *testing.T) {
	var se *StandardsError
	err := fmt.Errorf("wrapped: %w", NewAdmissionError("full"))
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrorTypeAdmission, se.Type)
}

func TestRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(NewAdmissionError("full")))
	assert.True(t, IsRecoverable(NewValidationError(ErrCodeParseFailed, "x")))
	assert.False(t, IsRecoverable(NewInternalError("x", nil)))
	assert.False(t, IsRecoverable(fmt.Errorf("plain")))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsAdmissionError(NewAdmissionError("full")))
	assert.False(t, IsAdmissionError(NewInternalError("x", nil)))
	assert.True(t, IsValidationError(ErrRuleConflict("r1")))
}

func TestWithContext(t *testing.T) {
	err := NewConfigError(ErrCodeReloadDisabled, "disabled").WithContext("operation", "op-1")
	assert.Equal(t, "op-1", err.Context["operation"])
}

func TestErrRuleReferenced(t *testing.T) {
	err := ErrRuleReferenced("base", []string{"a", "b"})
	assert.Contains(t, err.Error(), "extended by a, b")
	assert.Equal(t, ErrCodeRuleReferenced, err.Code)
}

func TestErrFileNotFound(t *testing.T) {
	err := ErrFileNotFound("/x/missing.json", nil)
	assert.Equal(t, "/x/missing.json", err.FilePath)
	assert.Contains(t, err.Error(), "does not exist")
}
