package rule

import (
	"context"

	"github.com/AccelByte/extend-casino-retention/pkg/signal"
	"github.com/sirupsen/logrus"
)

// Engine evaluates signals against registered rules and returns triggers.
type Engine struct {
	registry *Registry
}

// NewEngine creates a new rule evaluation engine.
func NewEngine(registry *Registry) *Engine {
	return &Engine{
		registry: registry,
	}
}

// Evaluate evaluates a signal against all matching rules.
// Returns a list of triggers for rules that matched, highest priority first.
func (e *Engine) Evaluate(ctx context.Context, sig signal.Signal) ([]*Trigger, error) {
	if sig == nil {
		return nil, nil
	}

	rules := e.registry.ForSignal(sig.Type())
	if len(rules) == 0 {
		logrus.Debugf("no rules found for signal type '%s'", sig.Type())
		return nil, nil
	}

	var triggers []*Trigger
	for _, rule := range rules {
		matched, trigger, err := rule.Evaluate(ctx, sig)
		if err != nil {
			logrus.Errorf("rule %s evaluation failed: %v", rule.ID(), err)
			// Continue evaluating other rules even if one fails
			continue
		}
		if matched && trigger != nil {
			triggers = append(triggers, trigger)
		}
	}

	return triggers, nil
}

// EvaluateFirst walks the rules in priority order and stops at the first
// match. Deterministic rules carry higher priorities than the oracle
// escalation rule, so the oracle is only consulted when none of them fire.
func (e *Engine) EvaluateFirst(ctx context.Context, sig signal.Signal) (*Trigger, error) {
	if sig == nil {
		return nil, nil
	}

	for _, rule := range e.registry.ForSignal(sig.Type()) {
		matched, trigger, err := rule.Evaluate(ctx, sig)
		if err != nil {
			logrus.Errorf("rule %s evaluation failed: %v", rule.ID(), err)
			continue
		}
		if matched && trigger != nil {
			logrus.WithFields(logrus.Fields{
				"actor_id": sig.ActorID(),
				"rule_id":  rule.ID(),
				"reason":   trigger.Reason,
				"source":   trigger.Source,
			}).Debug("rule triggered")
			return trigger, nil
		}
	}
	return nil, nil
}
