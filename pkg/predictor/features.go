package predictor

import (
	"math"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/common"
)

// Dimensions is the length of every feature vector.
var Dimensions = len(actor.Archetypes()) + len(actor.EmotionalStates()) + 7

// Features maps an actor and its recent bets onto a fixed-length vector.
// Every component is scaled into [0, 1] so cosine similarity weighs them
// comparably.
func Features(snap actor.Snapshot, window []actor.BetEvent) []float64 {
	v := make([]float64, 0, Dimensions)

	for _, a := range actor.Archetypes() {
		v = append(v, indicator(snap.Profile.Archetype == a))
	}
	for _, s := range actor.EmotionalStates() {
		v = append(v, indicator(snap.State == s))
	}

	v = append(v,
		common.Clamp(snap.BankrollRatio()/2, 0, 1),
		common.Clamp(float64(snap.ConsecutiveLosses)/10, 0, 1),
		lossRate(window),
		common.Clamp(meanStake(window)/math.Max(snap.Profile.TypicalStake, 0.01)/3, 0, 1),
		stakeTrend(window),
		common.Clamp(float64(snap.BetsThisSession)/math.Max(float64(snap.Profile.BetsPerSession), 1)/2, 0, 1),
		common.Clamp(0.5-windowNet(window)/math.Max(snap.InitialBankroll, 1), 0, 1),
	)
	return v
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func lossRate(window []actor.BetEvent) float64 {
	if len(window) == 0 {
		return 0
	}
	losses := 0
	for _, ev := range window {
		if !ev.Won {
			losses++
		}
	}
	return float64(losses) / float64(len(window))
}

func meanStake(window []actor.BetEvent) float64 {
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, ev := range window {
		sum += ev.Stake
	}
	return sum / float64(len(window))
}

// stakeTrend compares the newer half of the window to the older half:
// 0.5 is flat, above 0.5 means stakes are climbing.
func stakeTrend(window []actor.BetEvent) float64 {
	if len(window) < 2 {
		return 0.5
	}
	mid := len(window) / 2
	older := meanStake(window[:mid])
	newer := meanStake(window[mid:])
	if older <= 0 {
		return 0.5
	}
	return common.Clamp(newer/older/2, 0, 1)
}

func windowNet(window []actor.BetEvent) float64 {
	net := 0.0
	for _, ev := range window {
		net += ev.Net
	}
	return net
}
