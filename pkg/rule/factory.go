package rule

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// RuleFactory builds a rule from its configuration.
type RuleFactory func(config RuleConfig) (Rule, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]RuleFactory)
)

// RegisterRuleType makes ruleType available to CreateRule. Registering the
// same type again replaces the factory, so dependencies can be rebound.
func RegisterRuleType(ruleType string, factory RuleFactory) {
	factoriesMu.Lock()
	factories[ruleType] = factory
	factoriesMu.Unlock()
	logrus.Debugf("registered rule type: %s", ruleType)
}

// CreateRule builds the rule described by config. Disabled rules yield nil
// without error.
func CreateRule(config RuleConfig) (Rule, error) {
	if !config.Enabled {
		logrus.Infof("skipping disabled rule: %s", config.ID)
		return nil, nil
	}

	factoriesMu.RLock()
	factory, exists := factories[config.Type]
	factoriesMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unknown rule type: %s", config.Type)
	}

	logrus.Infof("creating rule: id=%s, type=%s, priority=%d", config.ID, config.Type, config.Priority)
	return factory(config)
}

// RegisterRules builds every enabled rule and adds it to registry. Rules that
// build are registered even when others fail; every failure is returned.
func RegisterRules(registry *Registry, configs []RuleConfig) error {
	var errs []error
	registered := 0
	for _, config := range configs {
		rule, err := CreateRule(config)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", config.ID, err))
			continue
		}
		if rule == nil {
			continue
		}
		if err := registry.Register(rule); err != nil {
			errs = append(errs, err)
			continue
		}
		registered++
	}

	logrus.Infof("registered %d rules", registered)
	return errors.Join(errs...)
}
