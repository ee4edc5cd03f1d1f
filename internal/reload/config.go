package reload

import (
	"time"

	stderrors "github.com/menoncello/coding-standard-sub000/internal/errors"
)

// ConflictResolution decides what happens when a create change targets an id
// that is already registered.
type ConflictResolution string

const (
	// ConflictFail rejects the file with a conflict error.
	ConflictFail ConflictResolution = "fail"
	// ConflictOverwrite replaces the existing rule with the new definition.
	ConflictOverwrite ConflictResolution = "overwrite"
	// ConflictMerge keeps existing field values where the new definition
	// leaves them empty.
	ConflictMerge ConflictResolution = "merge"
)

// Config controls the reload orchestrator.
type Config struct {
	// Enabled gates the whole pipeline; when false ProcessChanges fails
	// immediately with no side effects.
	Enabled bool

	// ValidateBeforeUpdate runs the full validation gate before anything is
	// applied. When false, validation is skipped entirely and the registry's
	// own checks during apply are the backstop.
	ValidateBeforeUpdate bool

	// EnableRollback reverts the whole batch when any file fails to apply.
	EnableRollback bool

	// MaxConcurrentOperations caps concurrently admitted ProcessChanges
	// calls. Excess calls are rejected immediately, not queued.
	MaxConcurrentOperations int

	// OperationTimeout bounds one validate+apply sequence. Zero disables
	// the bound.
	OperationTimeout time.Duration

	// OnConflict picks the behavior for create-over-existing collisions.
	OnConflict ConflictResolution
}

// DefaultConfig returns the default reload configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:                 true,
		ValidateBeforeUpdate:    true,
		EnableRollback:          true,
		MaxConcurrentOperations: 3,
		OperationTimeout:        30 * time.Second,
		OnConflict:              ConflictOverwrite,
	}
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.MaxConcurrentOperations <= 0 {
		return stderrors.NewConfigError(stderrors.ErrCodeConfigInvalid, "max concurrent operations must be positive")
	}
	if c.OperationTimeout < 0 {
		return stderrors.NewConfigError(stderrors.ErrCodeConfigInvalid, "operation timeout cannot be negative")
	}
	switch c.OnConflict {
	case ConflictFail, ConflictOverwrite, ConflictMerge, "":
	default:
		return stderrors.NewConfigError(stderrors.ErrCodeConfigInvalid, "unknown conflict resolution "+string(c.OnConflict))
	}
	return nil
}
