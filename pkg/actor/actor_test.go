package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/common"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestActor(t *testing.T, a Archetype) *Actor {
	t.Helper()
	p, ok := ProfileFor(a)
	if !ok {
		t.Fatalf("unknown archetype %s", a)
	}
	return New(1, p, "uk", t0, 42)
}

func loss(stake float64) BetEvent {
	return BetEvent{ActorID: 1, Timestamp: t0, Stake: stake}
}

func win(stake float64) BetEvent {
	return BetEvent{ActorID: 1, Timestamp: t0, Stake: stake, Won: true, Payout: 2 * stake}
}

func TestApply_UpdatesBankrollAndStreaks(t *testing.T) {
	a := newTestActor(t, Steady)
	cfg := DefaultTransitionConfig()

	if err := a.Apply(loss(10), cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a.Bankroll != 490 {
		t.Errorf("Expected bankroll 490, got %v", a.Bankroll)
	}
	if a.ConsecutiveLosses != 1 || a.ConsecutiveWins != 0 {
		t.Errorf("Unexpected streaks: wins=%d losses=%d", a.ConsecutiveWins, a.ConsecutiveLosses)
	}

	if err := a.Apply(win(10), cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a.Bankroll != 500 {
		t.Errorf("Expected bankroll 500, got %v", a.Bankroll)
	}
	if a.ConsecutiveLosses != 0 || a.ConsecutiveWins != 1 {
		t.Errorf("Unexpected streaks: wins=%d losses=%d", a.ConsecutiveWins, a.ConsecutiveLosses)
	}
	if a.BetsThisSession != 2 || a.BetsSinceBreak != 2 || a.SessionWins != 1 {
		t.Errorf("Unexpected session counters: %+v", a.Snapshot())
	}
}

func TestTransition_WinningNeedsTwoWinsAndProfit(t *testing.T) {
	a := newTestActor(t, Steady)
	cfg := DefaultTransitionConfig()

	_ = a.Apply(win(10), cfg)
	if a.State != Neutral {
		t.Fatalf("Expected neutral after one win, got %s", a.State)
	}
	_ = a.Apply(win(10), cfg)
	if a.State != Winning {
		t.Fatalf("Expected winning after two wins, got %s", a.State)
	}
	_ = a.Apply(loss(10), cfg)
	if a.State != Neutral {
		t.Errorf("Expected neutral after a loss while winning, got %s", a.State)
	}
}

func TestTransition_TiltRequiresRisingStakeRatio(t *testing.T) {
	tests := []struct {
		name   string
		stakes []float64
		want   EmotionalState
	}{
		{"falling stakes stay neutral", []float64{3, 2, 1}, Neutral},
		{"rising stakes tilt", []float64{1, 2, 4}, Tilting},
		{"below threshold", []float64{1, 2}, Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestActor(t, Casual)
			cfg := DefaultTransitionConfig()
			for _, s := range tt.stakes {
				if err := a.Apply(loss(s), cfg); err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
			}
			if a.State != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, a.State)
			}
		})
	}
}

func TestTransition_HighRollerThreshold(t *testing.T) {
	a := newTestActor(t, HighRoller)
	cfg := DefaultTransitionConfig()

	stake := 50.0
	for i := 0; i < 5; i++ {
		_ = a.Apply(loss(stake), cfg)
		stake += 10
	}
	if a.State != Neutral {
		t.Errorf("Expected neutral below the high roller tilt threshold, got %s", a.State)
	}
}

func TestTransition_Bored(t *testing.T) {
	a := newTestActor(t, Casual)
	cfg := DefaultTransitionConfig()

	// alternate so no streak builds and the session stays flat
	for i := 0; i < a.Profile.BetsPerSession+1; i++ {
		if i%2 == 0 {
			_ = a.Apply(loss(1), cfg)
		} else {
			_ = a.Apply(win(1), cfg)
		}
	}
	if a.State != Bored {
		t.Errorf("Expected bored after a long flat session, got %s", a.State)
	}
}

func TestRecovering_DecaysToNeutral(t *testing.T) {
	a := newTestActor(t, Steady)
	cfg := DefaultTransitionConfig()
	a.State = Tilting

	if err := a.MarkInterventionDelivered("iv-1", "cashback"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a.State != Recovering {
		t.Fatalf("Expected recovering, got %s", a.State)
	}

	for i := 0; i < cfg.RecoveryBets-1; i++ {
		if i%2 == 0 {
			_ = a.Apply(loss(5), cfg)
		} else {
			_ = a.Apply(win(5), cfg)
		}
	}
	if a.State != Recovering {
		t.Fatalf("Expected still recovering, got %s", a.State)
	}
	_ = a.Apply(loss(5), cfg)
	if a.State != Neutral {
		t.Errorf("Expected neutral after %d clean bets, got %s", cfg.RecoveryBets, a.State)
	}
}

func TestMarkInterventionDelivered_SecondIsInvariantViolation(t *testing.T) {
	a := newTestActor(t, Steady)
	if err := a.MarkInterventionDelivered("iv-1", "cashback"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	err := a.MarkInterventionDelivered("iv-2", "message_only")
	if !errors.Is(err, common.ErrInvariantViolation) {
		t.Errorf("Expected invariant violation, got %v", err)
	}
}

func TestBankruptcyChurnsAndIsTerminal(t *testing.T) {
	a := newTestActor(t, Casual)
	cfg := DefaultTransitionConfig()

	if err := a.Apply(loss(100), cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !a.Churned || a.ChurnReason != ChurnBankrupt {
		t.Fatalf("Expected bankrupt churn, got churned=%v reason=%s", a.Churned, a.ChurnReason)
	}

	if err := a.Apply(loss(1), cfg); !errors.Is(err, ErrChurned) {
		t.Errorf("Expected ErrChurned, got %v", err)
	}
	if err := a.MarkInterventionDelivered("iv", "cashback"); !errors.Is(err, ErrChurned) {
		t.Errorf("Expected ErrChurned for intervention, got %v", err)
	}

	a.Churn(ChurnAbandoned, t0.Add(time.Hour))
	if a.ChurnReason != ChurnBankrupt {
		t.Errorf("Expected churn reason to stay bankrupt, got %s", a.ChurnReason)
	}
}

func TestNegativeBankrollClampsAndChurns(t *testing.T) {
	a := newTestActor(t, Casual)
	cfg := DefaultTransitionConfig()

	if err := a.Apply(loss(150), cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a.Bankroll != 0 {
		t.Errorf("Expected bankroll clamped to 0, got %v", a.Bankroll)
	}
	if a.ChurnReason != ChurnCorrupted {
		t.Errorf("Expected %s, got %s", ChurnCorrupted, a.ChurnReason)
	}
}

func TestEndSession(t *testing.T) {
	tests := []struct {
		name          string
		idle          time.Duration
		wantChurned   bool
		wantBetsReset bool
	}{
		{"short break", 10 * time.Minute, false, false},
		{"long break resets bets since break", 2 * time.Hour, false, true},
		{"abandoned", 73 * time.Hour, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestActor(t, Steady)
			cfg := DefaultTransitionConfig()
			_ = a.Apply(loss(5), cfg)
			_ = a.Apply(loss(5), cfg)

			a.EndSession(t0, tt.idle, cfg)

			if a.Churned != tt.wantChurned {
				t.Fatalf("Expected churned=%v, got %v", tt.wantChurned, a.Churned)
			}
			if tt.wantChurned {
				if a.ChurnReason != ChurnAbandoned {
					t.Errorf("Expected abandoned, got %s", a.ChurnReason)
				}
				return
			}
			if a.BetsThisSession != 0 {
				t.Errorf("Expected session bets reset, got %d", a.BetsThisSession)
			}
			if (a.BetsSinceBreak == 0) != tt.wantBetsReset {
				t.Errorf("Unexpected BetsSinceBreak %d", a.BetsSinceBreak)
			}
			if !a.NextBetAt.Equal(t0.Add(tt.idle)) {
				t.Errorf("Expected next bet at %v, got %v", t0.Add(tt.idle), a.NextBetAt)
			}
		})
	}
}

func TestClaim(t *testing.T) {
	a := newTestActor(t, Steady)
	if !a.Claim() {
		t.Fatal("Expected first claim to succeed")
	}
	if a.Claim() {
		t.Error("Expected second claim to fail")
	}
	a.Release()
	if !a.Claim() {
		t.Error("Expected claim after release to succeed")
	}
}

func TestPopulate(t *testing.T) {
	arena, excluded := Populate(PopulationConfig{
		Size:          200,
		Seed:          7,
		Jurisdictions: []string{"uk", "mt"},
		ExcludedShare: 0.5,
	}, t0)

	if arena.Len() != 200 {
		t.Fatalf("Expected 200 actors, got %d", arena.Len())
	}
	for i, a := range arena.All() {
		if a.ID != i {
			t.Fatalf("Expected id %d, got %d", i, a.ID)
		}
		if a.Jurisdiction != "uk" && a.Jurisdiction != "mt" {
			t.Errorf("Unexpected jurisdiction %q", a.Jurisdiction)
		}
	}
	if len(excluded) == 0 || len(excluded) == 200 {
		t.Errorf("Expected a partial excluded share, got %d", len(excluded))
	}

	if _, err := arena.Get(200); !errors.Is(err, ErrUnknownActor) {
		t.Errorf("Expected ErrUnknownActor, got %v", err)
	}

	again, _ := Populate(PopulationConfig{Size: 200, Seed: 7, Jurisdictions: []string{"uk", "mt"}}, t0)
	for i := range arena.All() {
		if again.All()[i].Profile.Archetype != arena.All()[i].Profile.Archetype {
			t.Fatal("Expected the same seed to draw the same population")
		}
	}
}
