package signal

import (
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
)

// Signal represents a normalized bet event with player context.
// Signals are produced by the Processor from settled bets and
// are consumed by the rule engine for evaluation.
type Signal interface {
	// Type returns the signal type identifier ("bet" or "session_end").
	Type() string

	// ActorID returns the player identifier.
	ActorID() int

	// Timestamp returns the simulated time of the bet.
	Timestamp() time.Time

	// Metadata returns additional signal-specific data.
	Metadata() map[string]interface{}

	// Context returns the player snapshot and recent bet window.
	Context() *PlayerContext
}

// PlayerContext is everything a rule may look at. Window is oldest first and
// ends with the bet that produced the signal.
type PlayerContext struct {
	ActorID  int
	Snapshot actor.Snapshot
	Window   []actor.BetEvent
}

// LastBet returns the newest bet of the window.
func (p *PlayerContext) LastBet() (actor.BetEvent, bool) {
	if p == nil || len(p.Window) == 0 {
		return actor.BetEvent{}, false
	}
	return p.Window[len(p.Window)-1], true
}
