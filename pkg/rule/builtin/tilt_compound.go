package builtin

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/rule"
	"github.com/AccelByte/extend-casino-retention/pkg/signal"
)

const (
	// TiltCompoundRuleID flags a tilting player who keeps losing.
	TiltCompoundRuleID = "tilt_compound"

	DefaultTiltCompoundMinLosses = 2
)

// TiltCompoundRule flags a tilting player on a loss streak.
type TiltCompoundRule struct {
	config    rule.RuleConfig
	minLosses int
}

// NewTiltCompoundRule creates the rule.
func NewTiltCompoundRule(config rule.RuleConfig) *TiltCompoundRule {
	return &TiltCompoundRule{
		config:    config,
		minLosses: config.GetInt("min_losses", DefaultTiltCompoundMinLosses),
	}
}

func (r *TiltCompoundRule) ID() string   { return r.config.ID }
func (r *TiltCompoundRule) Name() string { return "Tilt Compound Detection" }
func (r *TiltCompoundRule) SignalTypes() []string {
	return []string{signal.TypeBet, signal.TypeSessionEnd}
}
func (r *TiltCompoundRule) Config() rule.RuleConfig { return r.config }

// Evaluate implements rule.Rule.
func (r *TiltCompoundRule) Evaluate(ctx context.Context, sig signal.Signal) (bool, *rule.Trigger, error) {
	pc := sig.Context()
	if pc == nil {
		return false, nil, fmt.Errorf("signal for actor %d has no player context", sig.ActorID())
	}

	snap := pc.Snapshot
	if snap.State != actor.Tilting || snap.ConsecutiveLosses < r.minLosses {
		return false, nil, nil
	}

	trigger := rule.NewTrigger(r.ID(), sig, TiltCompoundRuleID, r.config.Priority).
		WithDetail(fmt.Sprintf("tilting with %d consecutive losses", snap.ConsecutiveLosses)).
		WithMetadata("loss_streak", snap.ConsecutiveLosses)
	return true, trigger, nil
}
