package simulation

import (
	"math"
	"math/rand"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/common"
)

// GeneratorConfig tunes bet generation.
type GeneratorConfig struct {
	HouseEdge float64 `yaml:"house_edge"`
	// MaxStakeMultiplier caps the state multiplier applied to the typical stake.
	MaxStakeMultiplier float64 `yaml:"max_stake_multiplier"`
	// MinBreak and MaxBreak bound a normal break between sessions.
	MinBreak time.Duration `yaml:"min_break"`
	MaxBreak time.Duration `yaml:"max_break"`
	// AbandonScale scales an archetype's base churn into a per-session
	// abandonment probability.
	AbandonScale float64 `yaml:"abandon_scale"`

	Transition actor.TransitionConfig `yaml:"-"`
}

// DefaultGeneratorConfig returns the stock tuning.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		HouseEdge:          0.05,
		MaxStakeMultiplier: 3.0,
		MinBreak:           5 * time.Minute,
		MaxBreak:           3 * time.Hour,
		AbandonScale:       0.1,
		Transition:         actor.DefaultTransitionConfig(),
	}
}

// Generator turns an actor's current state into bets.
type Generator struct {
	cfg GeneratorConfig
}

// NewGenerator creates a generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{cfg: cfg}
}

// Config returns the generator tuning.
func (g *Generator) Config() GeneratorConfig {
	return g.cfg
}

// Step emits the actor's next bet if it is due by now, applies it and plans
// the one after. It returns nil when nothing is due or the actor has churned.
// The caller must hold the actor's claim.
func (g *Generator) Step(a *actor.Actor, now time.Time) (*actor.BetEvent, error) {
	if a.Churned || a.NextBetAt.After(now) {
		return nil, nil
	}

	r := a.Rand()
	at := a.NextBetAt
	stateAtBet := a.State

	stake := g.stake(a, r)
	won := r.Float64() < (1-g.cfg.HouseEdge)/2
	payout := 0.0
	if won {
		payout = common.RoundMoney(2 * stake)
	}

	ev := actor.BetEvent{
		ActorID:   a.ID,
		Seq:       a.Seq + 1,
		Timestamp: at,
		Stake:     stake,
		Won:       won,
		Payout:    payout,
		Net:       common.RoundMoney(payout - stake),
		State:     stateAtBet,
	}

	if err := a.Apply(ev, g.cfg.Transition); err != nil {
		return nil, err
	}
	ev.SessionBets = a.BetsThisSession
	if a.Churned {
		ev.SessionEnded = true
		return &ev, nil
	}

	a.NextBetAt = at.Add(g.delay(a.State, r))

	if g.sessionOver(a, r) {
		ev.SessionEnded = true
		a.EndSession(at, g.breakLength(a, r), g.cfg.Transition)
	}
	return &ev, nil
}

func (g *Generator) stake(a *actor.Actor, r *rand.Rand) float64 {
	p := a.Profile
	var mult float64
	switch a.State {
	case actor.Winning:
		mult = common.Uniform(r, 1.0, 1.4)
	case actor.Tilting:
		mult = p.TiltMultiplier * common.Uniform(r, 0.9, 1.5)
	case actor.Bored:
		mult = common.Uniform(r, 0.5, 0.9)
	case actor.Recovering:
		mult = common.Uniform(r, 0.8, 1.2)
	default:
		mult = common.Uniform(r, 0.7, 1.3)
	}
	mult = math.Min(mult, g.cfg.MaxStakeMultiplier)

	stake := common.Clamp(p.TypicalStake*mult, p.MinStake, p.MaxStake)
	stake = math.Min(stake, a.Bankroll)
	return common.RoundMoney(stake)
}

func (g *Generator) delay(state actor.EmotionalState, r *rand.Rand) time.Duration {
	var lo, hi float64
	switch state {
	case actor.Tilting:
		lo, hi = 2, 4
	case actor.Bored:
		lo, hi = 8, 15
	default:
		lo, hi = 3, 7
	}
	return time.Duration(common.Uniform(r, lo, hi) * float64(time.Second))
}

func (g *Generator) sessionOver(a *actor.Actor, r *rand.Rand) bool {
	norm := float64(a.Profile.BetsPerSession)
	switch a.State {
	case actor.Tilting:
		norm *= 1.5
	case actor.Bored:
		norm *= 0.6
	case actor.Winning:
		norm *= 1.2
	}
	if norm <= 0 {
		return true
	}

	progress := float64(a.BetsThisSession) / norm
	if progress < 0.8 {
		return false
	}
	return r.Float64() < math.Min(0.95, (progress-0.8)*2)
}

// breakLength draws the idle time after a session. With a small probability
// scaled by the archetype's base churn the break runs past the abandonment
// threshold.
func (g *Generator) breakLength(a *actor.Actor, r *rand.Rand) time.Duration {
	factor := 1.0
	switch a.State {
	case actor.Bored, actor.Tilting:
		factor = 1.5
	case actor.Recovering:
		factor = 0.5
	}

	if r.Float64() < a.Profile.BaseChurn*g.cfg.AbandonScale*factor {
		extra := time.Duration(common.Uniform(r, 1, 24) * float64(time.Hour))
		return a.Profile.AbandonAfter + extra
	}

	lo := float64(g.cfg.MinBreak)
	hi := float64(g.cfg.MaxBreak)
	return time.Duration(common.Uniform(r, lo, hi))
}
