package action

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ActionFactory builds a delivery channel from its configuration.
type ActionFactory func(config ActionConfig) (Action, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]ActionFactory)
)

// RegisterActionType makes actionType available to CreateAction. Registering
// the same type again replaces the factory, so a new deliverer can be bound.
func RegisterActionType(actionType string, factory ActionFactory) {
	factoriesMu.Lock()
	factories[actionType] = factory
	factoriesMu.Unlock()
	logrus.Debugf("registered action type: %s", actionType)
}

// CreateAction builds the channel described by config. Disabled channels
// yield nil without error.
func CreateAction(config ActionConfig) (Action, error) {
	if !config.Enabled {
		logrus.Infof("skipping disabled action: %s", config.ID)
		return nil, nil
	}

	factoriesMu.RLock()
	factory, exists := factories[config.Type]
	factoriesMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unknown action type: %s", config.Type)
	}

	logrus.Infof("creating action: id=%s, type=%s", config.ID, config.Type)
	return factory(config)
}

// RegisterActions builds every enabled channel and adds it to registry.
// Channels that build are registered even when others fail; every failure is
// returned.
func RegisterActions(registry *Registry, configs []ActionConfig) error {
	var errs []error
	registered := 0
	for _, config := range configs {
		a, err := CreateAction(config)
		if err != nil {
			errs = append(errs, fmt.Errorf("action %s: %w", config.ID, err))
			continue
		}
		if a == nil {
			continue
		}
		if err := registry.Register(a); err != nil {
			errs = append(errs, err)
			continue
		}
		registered++
	}

	logrus.Infof("registered %d actions", registered)
	return errors.Join(errs...)
}
