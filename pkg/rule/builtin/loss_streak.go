package builtin

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/rule"
	"github.com/AccelByte/extend-casino-retention/pkg/signal"
	"github.com/sirupsen/logrus"
)

const (
	// LossStreakRuleID is the identifier for loss streak detection rule
	LossStreakRuleID = "loss_streak"

	// DefaultLossStreakThreshold is the default number of consecutive losses to trigger
	DefaultLossStreakThreshold = 5
)

// LossStreakRule flags a player whose consecutive losses reach the threshold,
// whatever their emotional state.
type LossStreakRule struct {
	config    rule.RuleConfig
	threshold int
}

// NewLossStreakRule creates a new loss streak detection rule.
func NewLossStreakRule(config rule.RuleConfig) *LossStreakRule {
	threshold := config.GetInt("threshold", DefaultLossStreakThreshold)

	logrus.Infof("creating loss streak rule with threshold=%d", threshold)

	return &LossStreakRule{
		config:    config,
		threshold: threshold,
	}
}

// ID returns the rule identifier.
func (r *LossStreakRule) ID() string {
	return r.config.ID
}

// Name returns the rule name.
func (r *LossStreakRule) Name() string {
	return "Loss Streak Detection"
}

// SignalTypes returns the signal types this rule handles.
func (r *LossStreakRule) SignalTypes() []string {
	return []string{signal.TypeBet, signal.TypeSessionEnd}
}

// Config returns the rule configuration.
func (r *LossStreakRule) Config() rule.RuleConfig {
	return r.config
}

// Evaluate checks if the player has reached the loss streak threshold.
func (r *LossStreakRule) Evaluate(ctx context.Context, sig signal.Signal) (bool, *rule.Trigger, error) {
	pc := sig.Context()
	if pc == nil {
		return false, nil, fmt.Errorf("signal for actor %d has no player context", sig.ActorID())
	}

	streak := pc.Snapshot.ConsecutiveLosses
	if streak < r.threshold {
		return false, nil, nil
	}

	trigger := rule.NewTrigger(r.ID(), sig, LossStreakRuleID, r.config.Priority).
		WithDetail(fmt.Sprintf("%d consecutive losses", streak)).
		WithMetadata("loss_streak", streak).
		WithMetadata("threshold", r.threshold)
	return true, trigger, nil
}
