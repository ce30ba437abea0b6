package actor

import (
	"math"
	"time"
)

// TransitionConfig tunes the emotional state machine.
type TransitionConfig struct {
	// RecoveryBets is how many clean bets bring a recovering actor back to neutral.
	RecoveryBets int
	// BoredWinRateLow and BoredWinRateHigh bound a "flat" session win rate.
	BoredWinRateLow  float64
	BoredWinRateHigh float64
	// BoredSwingRatio is the largest session swing, relative to the session
	// start bankroll, that still counts as uneventful.
	BoredSwingRatio float64
	// LongBreak is the idle time after which BetsSinceBreak resets.
	LongBreak time.Duration
}

// DefaultTransitionConfig returns the stock tuning.
func DefaultTransitionConfig() TransitionConfig {
	return TransitionConfig{
		RecoveryBets:     10,
		BoredWinRateLow:  0.35,
		BoredWinRateHigh: 0.60,
		BoredSwingRatio:  0.20,
		LongBreak:        time.Hour,
	}
}

func (a *Actor) tiltThreshold() int {
	if a.Profile.TiltThreshold <= 0 {
		return 3
	}
	return a.Profile.TiltThreshold
}

// transition runs after every settled bet. stakeRatio is the stake relative to
// the bankroll before the bet.
func (a *Actor) transition(stakeRatio float64, cfg TransitionConfig) {
	sessionProfit := a.Bankroll - a.SessionStartBankroll

	switch {
	case a.ConsecutiveWins >= 2 && sessionProfit > 0:
		a.State = Winning

	case a.State == Winning && a.ConsecutiveLosses > 0:
		a.State = Neutral

	case a.State == Neutral && a.ConsecutiveLosses >= a.tiltThreshold() && stakeRatio > a.LastStakeRatio:
		a.State = Tilting

	case (a.State == Neutral || a.State == Tilting) && a.isBored(sessionProfit, cfg):
		a.State = Bored

	case a.State == Recovering:
		if a.ConsecutiveLosses >= a.tiltThreshold() {
			a.RecoveryBets = 0
			break
		}
		a.RecoveryBets++
		if a.RecoveryBets >= cfg.RecoveryBets {
			a.State = Neutral
			a.RecoveryBets = 0
		}
	}

	a.LastStakeRatio = stakeRatio
}

func (a *Actor) isBored(sessionProfit float64, cfg TransitionConfig) bool {
	if a.BetsThisSession <= a.Profile.BetsPerSession {
		return false
	}
	winRate := float64(a.SessionWins) / float64(a.BetsThisSession)
	if winRate < cfg.BoredWinRateLow || winRate > cfg.BoredWinRateHigh {
		return false
	}
	return math.Abs(sessionProfit) < cfg.BoredSwingRatio*a.SessionStartBankroll
}
