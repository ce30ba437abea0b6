package builtin

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/oracle"
	"github.com/AccelByte/extend-casino-retention/pkg/rule"
	"github.com/AccelByte/extend-casino-retention/pkg/signal"
	"github.com/sirupsen/logrus"
)

const (
	// OracleEscalationRuleID hands ambiguous cases to the reasoning oracle.
	OracleEscalationRuleID = "oracle_escalation"

	// ReasonEscalated is the flag reason for oracle-decided flags.
	ReasonEscalated = "escalated"

	DefaultAmbiguousLosses   = 3
	DefaultShortSessionRatio = 0.25
)

// OracleEscalationRule asks the oracle about cases the deterministic rules
// leave open: a loss streak that has not tipped into tilt, or a session
// ending far sooner than the archetype norm. Oracle failures never flag.
type OracleEscalationRule struct {
	config            rule.RuleConfig
	deps              *rule.RuleDependencies
	ambiguousLosses   int
	shortSessionRatio float64
}

// NewOracleEscalationRule creates the rule.
func NewOracleEscalationRule(config rule.RuleConfig, deps *rule.RuleDependencies) *OracleEscalationRule {
	return &OracleEscalationRule{
		config:            config,
		deps:              deps,
		ambiguousLosses:   config.GetInt("ambiguous_losses", DefaultAmbiguousLosses),
		shortSessionRatio: config.GetFloat("short_session_ratio", DefaultShortSessionRatio),
	}
}

func (r *OracleEscalationRule) ID() string   { return r.config.ID }
func (r *OracleEscalationRule) Name() string { return "Oracle Escalation" }
func (r *OracleEscalationRule) SignalTypes() []string {
	return []string{signal.TypeBet, signal.TypeSessionEnd}
}
func (r *OracleEscalationRule) Config() rule.RuleConfig { return r.config }

// Ambiguous reports which secondary condition sig meets, if any.
func (r *OracleEscalationRule) Ambiguous(sig signal.Signal) (string, bool) {
	pc := sig.Context()
	if pc == nil {
		return "", false
	}
	snap := pc.Snapshot

	if snap.ConsecutiveLosses >= r.ambiguousLosses && snap.State != actor.Tilting {
		return "loss_streak_without_tilt", true
	}

	if sig.Type() == signal.TypeSessionEnd && !snap.Churned {
		last, ok := pc.LastBet()
		norm := float64(snap.Profile.BetsPerSession)
		if ok && norm > 0 && float64(last.SessionBets) < r.shortSessionRatio*norm {
			return "short_session", true
		}
	}
	return "", false
}

// Evaluate implements rule.Rule.
func (r *OracleEscalationRule) Evaluate(ctx context.Context, sig signal.Signal) (bool, *rule.Trigger, error) {
	condition, ok := r.Ambiguous(sig)
	if !ok {
		return false, nil, nil
	}

	log := logrus.WithFields(logrus.Fields{
		"actor_id":  sig.ActorID(),
		"condition": condition,
	})

	if r.deps == nil || r.deps.Oracle == nil {
		log.WithField("degraded", "oracle_fail_open").Warn("no oracle configured, not flagging")
		return false, nil, nil
	}

	pc := sig.Context()
	snap := pc.Snapshot
	verdict, err := r.deps.Oracle.Judge(ctx, oracle.FlagRequest{
		ActorID:           snap.ID,
		Archetype:         snap.Profile.Archetype,
		State:             snap.State,
		BankrollRatio:     snap.BankrollRatio(),
		ConsecutiveLosses: snap.ConsecutiveLosses,
		BetsThisSession:   snap.BetsThisSession,
		SessionNorm:       snap.Profile.BetsPerSession,
		Trigger:           condition,
		Window:            pc.Window,
	})
	if err != nil {
		log.WithField("degraded", "oracle_fail_open").WithError(err).Warn("oracle unavailable, not flagging")
		return false, nil, nil
	}
	if !verdict.Flag {
		log.WithField("oracle_reason", verdict.Reason).Debug("oracle declined to flag")
		return false, nil, nil
	}

	trigger := rule.NewTrigger(r.ID(), sig, ReasonEscalated, r.config.Priority).
		WithDetail(fmt.Sprintf("%s: %s", condition, verdict.Reason)).
		WithMetadata("condition", condition)
	trigger.Source = rule.SourceOracle
	return true, trigger, nil
}
