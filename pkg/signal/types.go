package signal

import (
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
)

const (
	// TypeBet is emitted for every settled bet.
	TypeBet = "bet"
	// TypeSessionEnd is emitted instead of TypeBet for the last bet of a session.
	TypeSessionEnd = "session_end"
)

// BetSignal wraps one settled bet.
type BetSignal struct {
	signalType string
	actorID    int
	timestamp  time.Time
	metadata   map[string]interface{}
	context    *PlayerContext
	Event      actor.BetEvent
}

// NewBetSignal creates the signal for ev.
func NewBetSignal(ev actor.BetEvent, context *PlayerContext) *BetSignal {
	signalType := TypeBet
	if ev.SessionEnded {
		signalType = TypeSessionEnd
	}
	return &BetSignal{
		signalType: signalType,
		actorID:    ev.ActorID,
		timestamp:  ev.Timestamp,
		metadata: map[string]interface{}{
			"seq":   ev.Seq,
			"stake": ev.Stake,
			"won":   ev.Won,
			"state": string(ev.State),
		},
		context: context,
		Event:   ev,
	}
}

// Type implements Signal interface.
func (s *BetSignal) Type() string {
	return s.signalType
}

// ActorID implements Signal interface.
func (s *BetSignal) ActorID() int {
	return s.actorID
}

// Timestamp implements Signal interface.
func (s *BetSignal) Timestamp() time.Time {
	return s.timestamp
}

// Metadata implements Signal interface.
func (s *BetSignal) Metadata() map[string]interface{} {
	return s.metadata
}

// Context implements Signal interface.
func (s *BetSignal) Context() *PlayerContext {
	return s.context
}
