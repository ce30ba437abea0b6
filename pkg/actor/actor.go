package actor

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/common"
	"github.com/sirupsen/logrus"
)

// Actor is a simulated player. Its fields are only touched by the worker that
// holds the claim (see Claim), so the struct itself carries no lock.
type Actor struct {
	ID           int
	Profile      Profile
	Jurisdiction string

	Bankroll             float64
	InitialBankroll      float64
	SessionStartBankroll float64
	TotalWagered         float64

	State             EmotionalState
	ConsecutiveWins   int
	ConsecutiveLosses int

	BetsThisSession   int
	SessionWins       int
	SessionsCompleted int
	BetsSinceBreak    int
	SessionStartedAt  time.Time
	NextBetAt         time.Time

	LastStakeRatio float64
	RecoveryBets   int
	Seq            int

	Churned     bool
	ChurnReason ChurnReason
	ChurnedAt   time.Time

	Flagged              bool
	InterventionID       string
	LastInterventionType string

	rng     *rand.Rand
	claimed atomic.Bool
}

// New creates an actor at the start of its first session.
func New(id int, profile Profile, jurisdiction string, now time.Time, seed int64) *Actor {
	return &Actor{
		ID:                   id,
		Profile:              profile,
		Jurisdiction:         jurisdiction,
		Bankroll:             profile.Bankroll,
		InitialBankroll:      profile.Bankroll,
		SessionStartBankroll: profile.Bankroll,
		State:                Neutral,
		SessionStartedAt:     now,
		NextBetAt:            now,
		rng:                  rand.New(rand.NewSource(seed)),
	}
}

// Rand is the actor's private random source.
func (a *Actor) Rand() *rand.Rand {
	return a.rng
}

// Claim marks the actor as held by the caller. It returns false when another
// worker already holds it.
func (a *Actor) Claim() bool {
	return a.claimed.CompareAndSwap(false, true)
}

// Release gives the actor back.
func (a *Actor) Release() {
	a.claimed.Store(false)
}

// Apply settles a bet against the actor and runs the state machine.
func (a *Actor) Apply(ev BetEvent, cfg TransitionConfig) error {
	if a.Churned {
		return fmt.Errorf("apply bet to actor %d: %w", a.ID, ErrChurned)
	}

	stakeRatio := 0.0
	if a.Bankroll > 0 {
		stakeRatio = ev.Stake / a.Bankroll
	}

	a.Bankroll = common.RoundMoney(a.Bankroll - ev.Stake + ev.Payout)
	a.TotalWagered += ev.Stake
	a.BetsThisSession++
	a.BetsSinceBreak++
	a.Seq = ev.Seq

	if ev.Won {
		a.ConsecutiveWins++
		a.ConsecutiveLosses = 0
		a.SessionWins++
	} else {
		a.ConsecutiveLosses++
		a.ConsecutiveWins = 0
	}

	switch {
	case a.Bankroll < 0:
		logrus.WithFields(logrus.Fields{
			"actor_id": a.ID,
			"bankroll": a.Bankroll,
		}).Error("negative bankroll, clamping and retiring actor")
		a.Bankroll = 0
		a.Churn(ChurnCorrupted, ev.Timestamp)
		return nil
	case a.Bankroll == 0:
		a.Churn(ChurnBankrupt, ev.Timestamp)
		return nil
	}

	a.transition(stakeRatio, cfg)
	return nil
}

// EndSession closes the current session after a break of idle. An idle
// longer than the archetype's abandonment threshold churns the actor.
func (a *Actor) EndSession(now time.Time, idle time.Duration, cfg TransitionConfig) {
	if a.Churned {
		return
	}

	a.SessionsCompleted++
	if idle > a.Profile.AbandonAfter {
		a.Churn(ChurnAbandoned, now)
		return
	}

	a.BetsThisSession = 0
	a.SessionWins = 0
	a.SessionStartBankroll = a.Bankroll
	a.SessionStartedAt = now.Add(idle)
	a.NextBetAt = now.Add(idle)
	if idle >= cfg.LongBreak {
		a.BetsSinceBreak = 0
	}
}

// Churn retires the actor. It is terminal and idempotent.
func (a *Actor) Churn(reason ChurnReason, at time.Time) {
	if a.Churned {
		return
	}
	a.Churned = true
	a.ChurnReason = reason
	a.ChurnedAt = at
}

// MarkInterventionDelivered records a delivered intervention and puts the
// actor into recovery.
func (a *Actor) MarkInterventionDelivered(id, interventionType string) error {
	if a.Churned {
		return fmt.Errorf("deliver intervention to actor %d: %w", a.ID, ErrChurned)
	}
	if a.InterventionID != "" {
		return fmt.Errorf("actor %d already has intervention %s outstanding: %w",
			a.ID, a.InterventionID, common.ErrInvariantViolation)
	}
	a.InterventionID = id
	a.LastInterventionType = interventionType
	a.State = Recovering
	a.RecoveryBets = 0
	return nil
}

// CloseIntervention clears the outstanding intervention once it is labeled.
func (a *Actor) CloseIntervention(id string, retained bool) {
	if a.InterventionID != id {
		return
	}
	a.InterventionID = ""
	if retained {
		a.Flagged = false
	}
}

// BankrollRatio is the share of the starting bankroll left.
func (a *Actor) BankrollRatio() float64 {
	if a.InitialBankroll <= 0 {
		return 0
	}
	return a.Bankroll / a.InitialBankroll
}

// Snapshot copies the observable state of the actor.
func (a *Actor) Snapshot() Snapshot {
	return Snapshot{
		ID:                   a.ID,
		Profile:              a.Profile,
		Jurisdiction:         a.Jurisdiction,
		Bankroll:             a.Bankroll,
		InitialBankroll:      a.InitialBankroll,
		SessionStartBankroll: a.SessionStartBankroll,
		TotalWagered:         a.TotalWagered,
		State:                a.State,
		ConsecutiveWins:      a.ConsecutiveWins,
		ConsecutiveLosses:    a.ConsecutiveLosses,
		BetsThisSession:      a.BetsThisSession,
		SessionWins:          a.SessionWins,
		SessionsCompleted:    a.SessionsCompleted,
		BetsSinceBreak:       a.BetsSinceBreak,
		Churned:              a.Churned,
		ChurnReason:          a.ChurnReason,
		Flagged:              a.Flagged,
		InterventionID:       a.InterventionID,
		LastInterventionType: a.LastInterventionType,
	}
}

// Snapshot is a read-only copy of an actor, safe to hand to other goroutines.
type Snapshot struct {
	ID                   int            `json:"id"`
	Profile              Profile        `json:"profile"`
	Jurisdiction         string         `json:"jurisdiction"`
	Bankroll             float64        `json:"bankroll"`
	InitialBankroll      float64        `json:"initialBankroll"`
	SessionStartBankroll float64        `json:"sessionStartBankroll"`
	TotalWagered         float64        `json:"totalWagered"`
	State                EmotionalState `json:"state"`
	ConsecutiveWins      int            `json:"consecutiveWins"`
	ConsecutiveLosses    int            `json:"consecutiveLosses"`
	BetsThisSession      int            `json:"betsThisSession"`
	SessionWins          int            `json:"sessionWins"`
	SessionsCompleted    int            `json:"sessionsCompleted"`
	BetsSinceBreak       int            `json:"betsSinceBreak"`
	Churned              bool           `json:"churned"`
	ChurnReason          ChurnReason    `json:"churnReason,omitempty"`
	Flagged              bool           `json:"flagged"`
	InterventionID       string         `json:"interventionId,omitempty"`
	LastInterventionType string         `json:"lastInterventionType,omitempty"`
}

// BankrollRatio is the share of the starting bankroll left.
func (s Snapshot) BankrollRatio() float64 {
	if s.InitialBankroll <= 0 {
		return 0
	}
	return s.Bankroll / s.InitialBankroll
}

// SessionProfit is the bankroll change since the session started.
func (s Snapshot) SessionProfit() float64 {
	return s.Bankroll - s.SessionStartBankroll
}
