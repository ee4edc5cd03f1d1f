// Package registry provides the in-memory rule store the hot-reload pipeline
// mutates. It implements interfaces.RuleStore with copy-on-read semantics so
// no caller can mutate registry state behind the lock, and it publishes rule
// events to subscribers for the layers above this core.
package registry

import (
	"sync"
	"time"

	stderrors "github.com/menoncello/coding-standard-sub000/internal/errors"
	"github.com/menoncello/coding-standard-sub000/internal/types"
)

// EventType represents the type of rule event.
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

// String returns the string representation of the EventType.
func (e EventType) String() string {
	switch e {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// RuleEvent represents a change in the rule registry.
type RuleEvent struct {
	Type      EventType
	Rule      types.Rule
	Timestamp time.Time
}

// RuleRegistry manages all registered rules.
type RuleRegistry struct {
	rules    map[string]types.Rule
	mutex    sync.RWMutex
	watchers []chan RuleEvent
}

// NewRuleRegistry creates a new rule registry.
func NewRuleRegistry() *RuleRegistry {
	return &RuleRegistry{
		rules:    make(map[string]types.Rule),
		watchers: make([]chan RuleEvent, 0),
	}
}

// GetRule retrieves a rule by id.
func (r *RuleRegistry) GetRule(id string) (types.Rule, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	rule, exists := r.rules[id]
	if !exists {
		return types.Rule{}, false
	}
	return rule.Clone(), true
}

// AddRule inserts a new rule, failing on a duplicate id.
func (r *RuleRegistry) AddRule(rule types.Rule) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.rules[rule.ID]; exists {
		return stderrors.ErrRuleConflict(rule.ID)
	}

	stored := rule.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	r.rules[rule.ID] = stored

	r.notify(RuleEvent{Type: EventTypeAdded, Rule: stored.Clone(), Timestamp: time.Now()})
	return nil
}

// UpdateRule replaces an existing rule, failing when the id is unknown.
func (r *RuleRegistry) UpdateRule(id string, rule types.Rule) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	previous, exists := r.rules[id]
	if !exists {
		return stderrors.ErrRuleNotFound(id)
	}

	stored := rule.Clone()
	stored.ID = id
	stored.CreatedAt = previous.CreatedAt
	stored.UpdatedAt = time.Now()
	r.rules[id] = stored

	r.notify(RuleEvent{Type: EventTypeUpdated, Rule: stored.Clone(), Timestamp: time.Now()})
	return nil
}

// RemoveRule deletes a rule. Unless forced, removal fails while other rules
// extend the target.
func (r *RuleRegistry) RemoveRule(id string, force bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	rule, exists := r.rules[id]
	if !exists {
		return stderrors.ErrRuleNotFound(id)
	}

	if !force {
		if referrers := r.referrersLocked(id); len(referrers) > 0 {
			return stderrors.ErrRuleReferenced(id, referrers)
		}
	}

	delete(r.rules, id)
	r.notify(RuleEvent{Type: EventTypeRemoved, Rule: rule.Clone(), Timestamp: time.Now()})
	return nil
}

// referrersLocked lists the ids of rules extending the given rule.
// Caller must hold the mutex.
func (r *RuleRegistry) referrersLocked(id string) []string {
	var referrers []string
	for otherID, other := range r.rules {
		if otherID == id {
			continue
		}
		for _, base := range other.Extends {
			if base == id {
				referrers = append(referrers, otherID)
				break
			}
		}
	}
	return referrers
}

// GetAllRules returns a snapshot of all registered rules.
func (r *RuleRegistry) GetAllRules() []types.Rule {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]types.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		result = append(result, rule.Clone())
	}
	return result
}

// Count returns the number of registered rules.
func (r *RuleRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.rules)
}

// Watch returns a channel that receives rule events.
func (r *RuleRegistry) Watch() <-chan RuleEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan RuleEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it.
func (r *RuleRegistry) UnWatch(ch <-chan RuleEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// notify publishes an event to all watchers. Caller must hold the mutex.
func (r *RuleRegistry) notify(event RuleEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}
