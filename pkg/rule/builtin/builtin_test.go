package builtin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/oracle"
	"github.com/AccelByte/extend-casino-retention/pkg/rule"
	"github.com/AccelByte/extend-casino-retention/pkg/signal"
)

type stubOracle struct {
	verdict oracle.FlagVerdict
	err     error
	calls   int
	last    oracle.FlagRequest
}

func (s *stubOracle) Judge(ctx context.Context, req oracle.FlagRequest) (oracle.FlagVerdict, error) {
	s.calls++
	s.last = req
	return s.verdict, s.err
}

func (s *stubOracle) Compose(ctx context.Context, req oracle.ProposalRequest) (oracle.ProposalDraft, error) {
	return oracle.ProposalDraft{}, nil
}

func steady(t *testing.T) actor.Profile {
	t.Helper()
	p, ok := actor.ProfileFor(actor.Steady)
	if !ok {
		t.Fatal("steady profile missing")
	}
	return p
}

type sigSpec struct {
	state       actor.EmotionalState
	betState    actor.EmotionalState
	losses      int
	stake       float64
	sessionEnd  bool
	sessionBets int
}

func makeSignal(t *testing.T, s sigSpec) signal.Signal {
	t.Helper()
	p := steady(t)
	if s.betState == "" {
		s.betState = s.state
	}
	if s.stake == 0 {
		s.stake = p.TypicalStake
	}
	ev := actor.BetEvent{
		ActorID:      3,
		Seq:          42,
		Timestamp:    time.Unix(1000, 0),
		Stake:        s.stake,
		Net:          -s.stake,
		State:        s.betState,
		SessionEnded: s.sessionEnd,
		SessionBets:  s.sessionBets,
	}
	snap := actor.Snapshot{
		ID:                3,
		Profile:           p,
		Bankroll:          300,
		InitialBankroll:   p.Bankroll,
		State:             s.state,
		ConsecutiveLosses: s.losses,
		BetsThisSession:   s.sessionBets,
	}
	return signal.NewBetSignal(ev, signal.BuildPlayerContext(snap, []actor.BetEvent{ev}))
}

func cfg(id string, priority int) rule.RuleConfig {
	return rule.RuleConfig{ID: id, Type: id, Enabled: true, Priority: priority}
}

func TestDeterministicRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  rule.Rule
		sig   sigSpec
		match bool
	}{
		{"loss streak at threshold", NewLossStreakRule(cfg(LossStreakRuleID, 30)), sigSpec{state: actor.Neutral, losses: 5}, true},
		{"loss streak below threshold", NewLossStreakRule(cfg(LossStreakRuleID, 30)), sigSpec{state: actor.Neutral, losses: 4}, false},
		{"loss streak ignores state", NewLossStreakRule(cfg(LossStreakRuleID, 30)), sigSpec{state: actor.Recovering, losses: 6}, true},
		{"tilt compound", NewTiltCompoundRule(cfg(TiltCompoundRuleID, 20)), sigSpec{state: actor.Tilting, losses: 2}, true},
		{"tilt without losses", NewTiltCompoundRule(cfg(TiltCompoundRuleID, 20)), sigSpec{state: actor.Tilting, losses: 1}, false},
		{"losses without tilt", NewTiltCompoundRule(cfg(TiltCompoundRuleID, 20)), sigSpec{state: actor.Neutral, losses: 4}, false},
		{"stake spike while tilting", NewStakeSpikeRule(cfg(StakeSpikeRuleID, 10)), sigSpec{state: actor.Tilting, stake: 30}, true},
		{"stake spike placed while tilting", NewStakeSpikeRule(cfg(StakeSpikeRuleID, 10)), sigSpec{state: actor.Neutral, betState: actor.Tilting, stake: 35}, true},
		{"large stake while calm", NewStakeSpikeRule(cfg(StakeSpikeRuleID, 10)), sigSpec{state: actor.Winning, stake: 40}, false},
		{"small stake while tilting", NewStakeSpikeRule(cfg(StakeSpikeRuleID, 10)), sigSpec{state: actor.Tilting, stake: 25}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, trig, err := tt.rule.Evaluate(context.Background(), makeSignal(t, tt.sig))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if matched != tt.match {
				t.Fatalf("matched = %v, want %v", matched, tt.match)
			}
			if !matched {
				return
			}
			if trig.ActorID != 3 || trig.Source != rule.SourceRule || trig.Reason != tt.rule.Config().Type {
				t.Errorf("Unexpected trigger: %+v", trig)
			}
			if trig.Priority != tt.rule.Config().Priority {
				t.Errorf("priority = %d, want %d", trig.Priority, tt.rule.Config().Priority)
			}
		})
	}
}

func TestLossStreakRule_ConfiguredThreshold(t *testing.T) {
	c := cfg(LossStreakRuleID, 30)
	c.Parameters = map[string]interface{}{"threshold": 3}
	r := NewLossStreakRule(c)

	matched, _, err := r.Evaluate(context.Background(), makeSignal(t, sigSpec{state: actor.Neutral, losses: 3}))
	if err != nil || !matched {
		t.Errorf("Expected match at configured threshold, got %v, %v", matched, err)
	}
}

func TestOracleEscalation_Ambiguous(t *testing.T) {
	r := NewOracleEscalationRule(cfg(OracleEscalationRuleID, 0), nil)

	tests := []struct {
		name string
		sig  sigSpec
		want string
	}{
		{"loss streak without tilt", sigSpec{state: actor.Neutral, losses: 3, sessionBets: 12}, "loss_streak_without_tilt"},
		{"tilting is not ambiguous", sigSpec{state: actor.Tilting, losses: 3, sessionBets: 12}, ""},
		{"short session", sigSpec{state: actor.Neutral, sessionEnd: true, sessionBets: 5}, "short_session"},
		{"normal session end", sigSpec{state: actor.Neutral, sessionEnd: true, sessionBets: 25}, ""},
		{"short count mid session", sigSpec{state: actor.Neutral, sessionBets: 2}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Ambiguous(makeSignal(t, tt.sig))
			if got != tt.want || ok != (tt.want != "") {
				t.Errorf("Ambiguous() = %q, %v; want %q", got, ok, tt.want)
			}
		})
	}
}

func TestOracleEscalation_Evaluate(t *testing.T) {
	tests := []struct {
		name    string
		oracle  *stubOracle
		sig     sigSpec
		match   bool
		consult bool
	}{
		{"oracle flags", &stubOracle{verdict: oracle.FlagVerdict{Flag: true, Reason: "chasing"}}, sigSpec{state: actor.Neutral, losses: 4}, true, true},
		{"oracle declines", &stubOracle{verdict: oracle.FlagVerdict{Flag: false}}, sigSpec{state: actor.Neutral, losses: 4}, false, true},
		{"oracle fails open", &stubOracle{err: oracle.ErrUnavailable}, sigSpec{state: actor.Neutral, losses: 4}, false, true},
		{"oracle timeout fails open", &stubOracle{err: context.DeadlineExceeded}, sigSpec{state: actor.Neutral, losses: 4}, false, true},
		{"unambiguous skips oracle", &stubOracle{verdict: oracle.FlagVerdict{Flag: true}}, sigSpec{state: actor.Neutral, losses: 1}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := rule.NewRuleDependencies().WithOracle(tt.oracle)
			r := NewOracleEscalationRule(cfg(OracleEscalationRuleID, 0), deps)

			matched, trig, err := r.Evaluate(context.Background(), makeSignal(t, tt.sig))
			if err != nil {
				t.Fatalf("Evaluate must not surface oracle errors, got %v", err)
			}
			if matched != tt.match {
				t.Fatalf("matched = %v, want %v", matched, tt.match)
			}
			if (tt.oracle.calls > 0) != tt.consult {
				t.Errorf("oracle calls = %d, consult = %v", tt.oracle.calls, tt.consult)
			}
			if matched {
				if trig.Source != rule.SourceOracle || trig.Reason != ReasonEscalated {
					t.Errorf("Unexpected trigger: %+v", trig)
				}
				if tt.oracle.last.ConsecutiveLosses != 4 || tt.oracle.last.Archetype != actor.Steady {
					t.Errorf("Unexpected oracle request: %+v", tt.oracle.last)
				}
			}
		})
	}
}

func TestOracleEscalation_NoOracle(t *testing.T) {
	r := NewOracleEscalationRule(cfg(OracleEscalationRuleID, 0), rule.NewRuleDependencies())
	matched, _, err := r.Evaluate(context.Background(), makeSignal(t, sigSpec{state: actor.Neutral, losses: 4}))
	if matched || err != nil {
		t.Errorf("Expected fail open without an oracle, got %v, %v", matched, err)
	}
}

func TestEngine_DeterministicBeforeOracle(t *testing.T) {
	o := &stubOracle{err: errors.New("must not be called")}
	RegisterRules(rule.NewRuleDependencies().WithOracle(o))

	registry := rule.NewRegistry()
	if err := rule.RegisterRules(registry, []rule.RuleConfig{
		cfg(LossStreakRuleID, 30),
		cfg(TiltCompoundRuleID, 20),
		cfg(StakeSpikeRuleID, 10),
		cfg(OracleEscalationRuleID, 0),
	}); err != nil {
		t.Fatalf("RegisterRules: %v", err)
	}

	trig, err := rule.NewEngine(registry).EvaluateFirst(context.Background(), makeSignal(t, sigSpec{state: actor.Neutral, losses: 5}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if trig == nil || trig.Reason != LossStreakRuleID {
		t.Fatalf("Expected loss_streak trigger, got %+v", trig)
	}
	if o.calls != 0 {
		t.Errorf("oracle consulted %d times despite deterministic match", o.calls)
	}
}
