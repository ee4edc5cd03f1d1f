package types

import "time"

// ChangeType classifies a file change delivered by the watcher.
type ChangeType int

const (
	ChangeCreate ChangeType = iota
	ChangeUpdate
	ChangeDelete
)

// String returns the string representation of the ChangeType.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreate:
		return "create"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// FileChange is one filtered, debounced file event. The watcher produces it;
// the reload orchestrator consumes it exactly once.
type FileChange struct {
	Path      string
	Type      ChangeType
	Timestamp time.Time
	Size      int64
}
