package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AccelByte/extend-casino-retention/pkg/action"
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/rule"
)

// ValidateWiring validates that the pipeline is correctly wired.
// It checks that:
// - All enabled rules in config have registered instances
// - All enabled actions in config have registered instances
// - Every delivery route points at an enabled action carrying its type
//
// This catches common mistakes like:
// - Forgetting to register a rule or action type factory
// - Typos in rule/action IDs or types
func ValidateWiring(ruleRegistry *rule.Registry, actionRegistry *action.Registry, config *Config) error {
	var errors []string

	for _, rc := range config.Rules {
		if !rc.Enabled {
			continue
		}

		r := ruleRegistry.Get(rc.ID)
		if r == nil {
			errors = append(errors, fmt.Sprintf("rule '%s' (type=%s) is enabled in config but not registered", rc.ID, rc.Type))
		}
	}

	for _, ac := range config.Actions {
		if !ac.Enabled {
			continue
		}

		a := actionRegistry.Get(ac.ID)
		if a == nil {
			errors = append(errors, fmt.Sprintf("action '%s' (type=%s) is enabled in config but not registered", ac.ID, ac.Type))
		}
	}

	types := make([]string, 0, len(config.Deliveries))
	for typ := range config.Deliveries {
		types = append(types, typ)
	}
	sort.Strings(types)
	for _, typ := range types {
		actionID := config.Deliveries[typ]
		a := actionRegistry.GetEnabled(actionID)
		if a == nil {
			errors = append(errors, fmt.Sprintf("delivery for '%s' uses action '%s' which is not registered or disabled", typ, actionID))
			continue
		}
		if carried := a.Carries(); carried != intervention.Type(typ) {
			errors = append(errors, fmt.Sprintf("delivery for '%s' uses action '%s' which carries %s (channels for %s: %v)",
				typ, actionID, carried, typ, actionRegistry.ChannelsFor(intervention.Type(typ))))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("pipeline wiring validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
