package builtin

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/rule"
	"github.com/AccelByte/extend-casino-retention/pkg/signal"
)

const (
	// StakeSpikeRuleID flags an oversized stake placed while tilting.
	StakeSpikeRuleID = "stake_spike"

	DefaultStakeSpikeMultiple = 3.0
)

// StakeSpikeRule compares the triggering stake to the archetype baseline.
// The state checked is the one the bet was placed in.
type StakeSpikeRule struct {
	config   rule.RuleConfig
	multiple float64
}

// NewStakeSpikeRule creates the rule.
func NewStakeSpikeRule(config rule.RuleConfig) *StakeSpikeRule {
	return &StakeSpikeRule{
		config:   config,
		multiple: config.GetFloat("multiple", DefaultStakeSpikeMultiple),
	}
}

func (r *StakeSpikeRule) ID() string   { return r.config.ID }
func (r *StakeSpikeRule) Name() string { return "Stake Spike Detection" }
func (r *StakeSpikeRule) SignalTypes() []string {
	return []string{signal.TypeBet, signal.TypeSessionEnd}
}
func (r *StakeSpikeRule) Config() rule.RuleConfig { return r.config }

// Evaluate implements rule.Rule.
func (r *StakeSpikeRule) Evaluate(ctx context.Context, sig signal.Signal) (bool, *rule.Trigger, error) {
	pc := sig.Context()
	last, ok := pc.LastBet()
	if !ok {
		return false, nil, fmt.Errorf("signal for actor %d has no bet window", sig.ActorID())
	}

	baseline := pc.Snapshot.Profile.TypicalStake
	tilting := last.State == actor.Tilting || pc.Snapshot.State == actor.Tilting
	if !tilting || baseline <= 0 || last.Stake < r.multiple*baseline {
		return false, nil, nil
	}

	trigger := rule.NewTrigger(r.ID(), sig, StakeSpikeRuleID, r.config.Priority).
		WithDetail(fmt.Sprintf("stake %.2f is %.1fx the %.2f baseline while tilting", last.Stake, last.Stake/baseline, baseline)).
		WithMetadata("stake", last.Stake).
		WithMetadata("baseline", baseline)
	return true, trigger, nil
}
