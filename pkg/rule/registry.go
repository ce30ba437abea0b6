package rule

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry holds the monitor's rules. For every signal type it keeps the
// enabled rules in evaluation order: highest priority first, ties by ID.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
	order map[string][]Rule // per signal type, rebuilt lazily
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[string]Rule),
		order: make(map[string][]Rule),
	}
}

// Register adds r. IDs are unique; a second rule with the same ID is refused.
func (r *Registry) Register(rule Rule) error {
	if rule == nil {
		return errors.New("cannot register a nil rule")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[rule.ID()]; exists {
		return fmt.Errorf("rule %s already registered", rule.ID())
	}
	r.rules[rule.ID()] = rule
	clear(r.order)
	return nil
}

// Get returns the rule with the given ID, or nil.
func (r *Registry) Get(ruleID string) Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rules[ruleID]
}

// ForSignal returns the enabled rules that handle signalType, in evaluation
// order. A rule with no signal types handles every type. The slice is shared;
// callers must not modify it.
func (r *Registry) ForSignal(signalType string) []Rule {
	r.mu.RLock()
	cached, ok := r.order[signalType]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.order[signalType]; ok {
		return cached
	}
	var matching []Rule
	for _, rule := range r.rules {
		if rule.Config().Enabled && handles(rule, signalType) {
			matching = append(matching, rule)
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		pi, pj := matching[i].Config().Priority, matching[j].Config().Priority
		if pi == pj {
			return matching[i].ID() < matching[j].ID()
		}
		return pi > pj
	})
	r.order[signalType] = matching
	return matching
}

func handles(rule Rule, signalType string) bool {
	types := rule.SignalTypes()
	if len(types) == 0 {
		return true
	}
	for _, st := range types {
		if st == signalType {
			return true
		}
	}
	return false
}

// Count returns the number of registered rules, enabled or not.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
