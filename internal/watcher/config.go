package watcher

import (
	"time"

	stderrors "github.com/menoncello/coding-standard-sub000/internal/errors"
)

// Config controls the watcher pipeline. It is immutable per watcher instance
// except through UpdateConfig, which restarts the underlying watches when the
// watched roots change.
type Config struct {
	// Roots are the directory trees to observe.
	Roots []string

	// Extensions lists the allowed file extensions (with leading dot).
	Extensions []string

	// IgnorePatterns are doublestar globs; matching paths are dropped.
	IgnorePatterns []string

	// Debounce is the per-path quiet window. Each new event for a path
	// resets the timer; only the last event is delivered.
	Debounce time.Duration

	// Throttle is the minimum spacing between successive deliveries.
	Throttle time.Duration

	// MaxBatchWait is the period of the batch sweep that drains pending
	// paths regardless of timer state, bounding worst-case latency.
	MaxBatchWait time.Duration

	// MaxConcurrency bounds how many drained events are processed at once.
	MaxConcurrency int
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		Extensions: []string{".json", ".yaml", ".yml", ".md"},
		IgnorePatterns: []string{
			"**/.git/**",
			"**/node_modules/**",
			"**/vendor/**",
			"**/*.tmp",
			"**/*.swp",
		},
		Debounce:       300 * time.Millisecond,
		Throttle:       100 * time.Millisecond,
		MaxBatchWait:   2 * time.Second,
		MaxConcurrency: 4,
	}
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if len(c.Roots) == 0 {
		return stderrors.NewConfigError(stderrors.ErrCodeConfigInvalid, "at least one watch root is required")
	}
	if c.Debounce <= 0 {
		return stderrors.NewConfigError(stderrors.ErrCodeConfigInvalid, "debounce duration must be positive")
	}
	if c.Throttle < 0 {
		return stderrors.NewConfigError(stderrors.ErrCodeConfigInvalid, "throttle duration cannot be negative")
	}
	if c.MaxBatchWait <= 0 {
		return stderrors.NewConfigError(stderrors.ErrCodeConfigInvalid, "max batch wait must be positive")
	}
	if c.MaxConcurrency <= 0 {
		return stderrors.NewConfigError(stderrors.ErrCodeConfigInvalid, "max concurrency must be positive")
	}
	return nil
}

// clone copies the config so an instance never shares slices with callers.
func (c Config) clone() Config {
	out := c
	out.Roots = append([]string(nil), c.Roots...)
	out.Extensions = append([]string(nil), c.Extensions...)
	out.IgnorePatterns = append([]string(nil), c.IgnorePatterns...)
	return out
}

// sameRoots reports whether both configs watch the same root set in order.
func sameRoots(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
