package actor

import (
	"math/rand"
	"time"
)

// Archetype is one of the fixed player profiles.
type Archetype string

const (
	HighRoller Archetype = "high_roller"
	Steady     Archetype = "steady"
	Casual     Archetype = "casual"
)

// Profile holds the behavioral constants of an archetype.
type Profile struct {
	Archetype        Archetype
	TypicalStake     float64
	MinStake         float64
	MaxStake         float64
	Bankroll         float64
	TiltThreshold    int
	TiltMultiplier   float64
	BetsPerSession   int
	BaseChurn        float64
	LTV              float64
	PrefersFreeSpins bool
	Weight           float64
	AbandonAfter     time.Duration
}

// archetypes is ordered; feature vectors and population draws depend on it.
var archetypes = []Profile{
	{
		Archetype:      HighRoller,
		TypicalStake:   200,
		MinStake:       50,
		MaxStake:       500,
		Bankroll:       10000,
		TiltThreshold:  8,
		TiltMultiplier: 1.5,
		BetsPerSession: 40,
		BaseChurn:      0.25,
		LTV:            5000,
		Weight:         0.10,
		AbandonAfter:   72 * time.Hour,
	},
	{
		Archetype:        Steady,
		TypicalStake:     10,
		MinStake:         5,
		MaxStake:         50,
		Bankroll:         500,
		TiltThreshold:    5,
		TiltMultiplier:   2.5,
		BetsPerSession:   30,
		BaseChurn:        0.35,
		LTV:              800,
		PrefersFreeSpins: true,
		Weight:           0.30,
		AbandonAfter:     72 * time.Hour,
	},
	{
		Archetype:        Casual,
		TypicalStake:     2,
		MinStake:         0.5,
		MaxStake:         10,
		Bankroll:         100,
		TiltThreshold:    3,
		TiltMultiplier:   2.0,
		BetsPerSession:   20,
		BaseChurn:        0.50,
		LTV:              150,
		PrefersFreeSpins: true,
		Weight:           0.60,
		AbandonAfter:     72 * time.Hour,
	},
}

// Archetypes lists the archetypes in their canonical order.
func Archetypes() []Archetype {
	out := make([]Archetype, len(archetypes))
	for i, p := range archetypes {
		out[i] = p.Archetype
	}
	return out
}

// ProfileFor returns the profile of an archetype.
func ProfileFor(a Archetype) (Profile, bool) {
	for _, p := range archetypes {
		if p.Archetype == a {
			return p, true
		}
	}
	return Profile{}, false
}

// DrawProfile picks a profile by archetype weight.
func DrawProfile(r *rand.Rand) Profile {
	x := r.Float64()
	acc := 0.0
	for _, p := range archetypes {
		acc += p.Weight
		if x < acc {
			return p
		}
	}
	return archetypes[len(archetypes)-1]
}
