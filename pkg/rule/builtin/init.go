package builtin

import (
	"github.com/AccelByte/extend-casino-retention/pkg/rule"
)

// RegisterRules registers all built-in rule types with the factory.
// deps may be nil; the escalation rule then never flags.
func RegisterRules(deps *rule.RuleDependencies) {
	if deps == nil {
		deps = rule.NewRuleDependencies()
	}

	rule.RegisterRuleType(LossStreakRuleID, func(config rule.RuleConfig) (rule.Rule, error) {
		return NewLossStreakRule(config), nil
	})

	rule.RegisterRuleType(TiltCompoundRuleID, func(config rule.RuleConfig) (rule.Rule, error) {
		return NewTiltCompoundRule(config), nil
	})

	rule.RegisterRuleType(StakeSpikeRuleID, func(config rule.RuleConfig) (rule.Rule, error) {
		return NewStakeSpikeRule(config), nil
	})

	rule.RegisterRuleType(OracleEscalationRuleID, func(config rule.RuleConfig) (rule.Rule, error) {
		return NewOracleEscalationRule(config, deps), nil
	})
}
