// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/pipeline"
	"github.com/AccelByte/extend-casino-retention/pkg/rule"
	ruleBuiltin "github.com/AccelByte/extend-casino-retention/pkg/rule/builtin"
	"github.com/sirupsen/logrus"
)

// InitRuleEngine creates and initializes the monitor's rule engine from pipeline config.
//
// ============================================================
// DEVELOPER: Register custom rule types here.
// ============================================================
// Rules evaluate bet and session signals and decide whether a
// player should be flagged.
//
// Steps to add a new rule:
// 1. Create your rule in pkg/rule/builtin/ (see loss_streak.go)
// 2. Implement the Rule interface
// 3. Register the rule type in pkg/rule/builtin/init.go
// 4. Add rule configuration to config/pipeline.yaml
//
// The builtin rules detect:
// - Loss streaks
// - Stake spikes relative to the archetype norm
// - Loss streaks that continue while the player is tilting
// - Ambiguous cases escalated to the oracle
// ============================================================
func InitRuleEngine(pipelineConfig *pipeline.Config, deps *rule.RuleDependencies) (*rule.Engine, *rule.Registry, error) {
	ruleBuiltin.RegisterRules(deps)

	ruleConfigs := convertRuleConfigs(pipelineConfig.Rules)

	registry := rule.NewRegistry()
	if err := rule.RegisterRules(registry, ruleConfigs); err != nil {
		return nil, nil, fmt.Errorf("failed to register rules: %w", err)
	}

	logrus.Infof("registered %d rules", len(ruleConfigs))

	engine := rule.NewEngine(registry)
	logrus.Infof("initialized rule engine")

	return engine, registry, nil
}

func convertRuleConfigs(configs []pipeline.RuleConfig) []rule.RuleConfig {
	result := make([]rule.RuleConfig, len(configs))
	for i, rc := range configs {
		result[i] = rule.RuleConfig{
			ID:         rc.ID,
			Type:       rc.Type,
			Enabled:    rc.Enabled,
			Priority:   rc.Priority,
			Parameters: rc.Parameters,
		}
	}
	return result
}
