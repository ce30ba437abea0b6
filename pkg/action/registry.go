package action

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
)

// Registry holds the delivery channels by action ID. Disabled channels stay
// registered so wiring checks can tell "disabled" from "missing".
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Action)}
}

// Register adds a channel. IDs are unique and every channel must carry a
// known intervention type.
func (r *Registry) Register(action Action) error {
	if action == nil {
		return errors.New("cannot register a nil action")
	}
	if t := action.Carries(); !t.Valid() {
		return fmt.Errorf("action %s carries unknown intervention type %q: %w", action.ID(), t, ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.channels[action.ID()]; exists {
		return fmt.Errorf("action %s already registered", action.ID())
	}
	r.channels[action.ID()] = action
	return nil
}

// Get returns the channel with the given ID, or nil.
func (r *Registry) Get(actionID string) Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[actionID]
}

// GetEnabled is Get restricted to enabled channels.
func (r *Registry) GetEnabled(actionID string) Action {
	a := r.Get(actionID)
	if a == nil || !a.Config().Enabled {
		return nil
	}
	return a
}

// ChannelsFor returns the IDs of the enabled channels that carry t, sorted.
func (r *Registry) ChannelsFor(t intervention.Type) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, a := range r.channels {
		if a.Config().Enabled && a.Carries() == t {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered channels, enabled or not.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
