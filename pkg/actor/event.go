package actor

import "time"

// BetEvent is one settled bet. Events are values; nothing mutates them once emitted.
type BetEvent struct {
	ActorID      int            `json:"actorId"`
	Seq          int            `json:"seq"`
	Timestamp    time.Time      `json:"timestamp"`
	Stake        float64        `json:"stake"`
	Won          bool           `json:"won"`
	Payout       float64        `json:"payout"`
	Net          float64        `json:"net"`
	State        EmotionalState `json:"state"`
	SessionEnded bool           `json:"sessionEnded"`
	// SessionBets counts the bets of the session up to and including this one.
	SessionBets int `json:"sessionBets"`
}
